package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"travelcms/internal/web"
)

// Recovery recovers from panics, logs them and renders the 500 page
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic recovered",
					zap.String("request_id", GetRequestID(c)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", err),
					zap.Stack("stack"),
				)

				if c.Writer.Written() {
					c.Abort()
					return
				}
				web.RenderError(c, http.StatusInternalServerError)
			}
		}()

		c.Next()
	}
}
