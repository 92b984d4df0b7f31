package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func contextWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/logs?"+query, nil)
	return c
}

func TestParse(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Page: 1, Limit: 20, Offset: 0}},
		{"page=3&limit=10", Params{Page: 3, Limit: 10, Offset: 20}},
		{"page=0&limit=0", Params{Page: 1, Limit: 20, Offset: 0}},
		{"page=abc&limit=500", Params{Page: 1, Limit: 100, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(contextWithQuery(tt.query)))
		})
	}
}

func TestParseOptional(t *testing.T) {
	_, ok := ParseOptional(contextWithQuery(""))
	assert.False(t, ok)

	p, ok := ParseOptional(contextWithQuery("limit=5"))
	assert.True(t, ok)
	assert.Equal(t, Params{Page: 1, Limit: 5, Offset: 0}, p)
}

func TestNewMeta(t *testing.T) {
	assert.Equal(t, 0, NewMeta(Params{Page: 1, Limit: 20}, 0).TotalPages)
	assert.Equal(t, 1, NewMeta(Params{Page: 1, Limit: 20}, 20).TotalPages)
	assert.Equal(t, 2, NewMeta(Params{Page: 1, Limit: 20}, 21).TotalPages)
}
