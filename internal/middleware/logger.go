package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"travelcms/internal/web"
)

// Logger logs every request once it completes
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if actor, ok := currentActorID(c); ok {
			fields = append(fields, zap.Uint("user_id", actor))
		}

		if len(c.Errors) > 0 {
			log.Error("Request error", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		log.Info("Request", fields...)
	}
}

func currentActorID(c *gin.Context) (uint, bool) {
	actor, ok := web.CurrentActor(c)
	return actor.UserID, ok
}
