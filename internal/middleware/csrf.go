package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"travelcms/internal/web"
)

const (
	CSRFCookie = "csrf_token"
	CSRFField  = "csrf_token"
	CSRFHeader = "X-CSRF-Token"
)

// CSRF issues a per-browser token cookie and requires every unsafe request to
// echo it in the csrf_token form field or the X-CSRF-Token header.
func CSRF(secure bool, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CSRFCookie)
		if err != nil || token == "" {
			token = uuid.New().String()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CSRFCookie, token, 0, "/", "", secure, true)
		}
		web.SetCSRFToken(c, token)

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		sent := c.GetHeader(CSRFHeader)
		if sent == "" {
			sent = c.PostForm(CSRFField)
		}
		if subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
			log.Warn("csrf token mismatch",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", GetRequestID(c)),
			)
			web.RenderError(c, http.StatusForbidden)
			return
		}
		c.Next()
	}
}
