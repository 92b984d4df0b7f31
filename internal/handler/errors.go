package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"travelcms/internal/rbac"
	"travelcms/internal/service"
	"travelcms/internal/web"
)

// renderFailure maps a service error to its error page. Unexpected errors are
// logged and attached to the context for the request logger.
func renderFailure(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, rbac.ErrAccessDenied):
		web.RenderError(c, http.StatusForbidden)
	case errors.Is(err, service.ErrNotFound):
		web.RenderError(c, http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidInput):
		web.RenderError(c, http.StatusUnprocessableEntity)
	default:
		_ = c.Error(err)
		log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		web.RenderError(c, http.StatusInternalServerError)
	}
}

// submitted returns the POST body values. A body that cannot be parsed ends
// the request with 400.
func submitted(c *gin.Context) (url.Values, bool) {
	if err := c.Request.ParseForm(); err != nil {
		web.RenderError(c, http.StatusBadRequest)
		return nil, false
	}
	return c.Request.PostForm, true
}
