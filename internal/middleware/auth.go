package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"travelcms/internal/metrics"
	"travelcms/internal/rbac"
	"travelcms/internal/service"
	"travelcms/internal/web"
	"travelcms/pkg/response"
)

// ActorLoader resolves the session's user id to a fresh Actor
type ActorLoader interface {
	GetActor(ctx context.Context, userID uint) (rbac.Actor, error)
}

// Authenticate resolves the session cookie to an Actor on every request. Anonymous
// requests pass through untouched; stale sessions are cleared.
func Authenticate(sessions *SessionManager, users ActorLoader, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			c.Next()
			return
		}

		userID, err := sessions.Parse(token)
		if err != nil {
			sessions.ClearCookie(c)
			c.Next()
			return
		}

		actor, err := users.GetActor(c.Request.Context(), userID)
		if err != nil {
			if !errors.Is(err, service.ErrNotFound) {
				log.Error("failed to load session user", zap.Uint("user_id", userID), zap.Error(err))
				web.RenderError(c, http.StatusInternalServerError)
				return
			}
			sessions.ClearCookie(c)
			c.Next()
			return
		}

		web.SetActor(c, actor)
		c.Next()
	}
}

// RequireLogin redirects anonymous requests to the login page. JSON clients get 401.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := web.CurrentActor(c); ok {
			c.Next()
			return
		}
		if web.WantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "login required"))
			return
		}
		c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// RequireCapability renders the 403 page unless the actor's role grants capability.
// It must run after RequireLogin.
func RequireCapability(capability rbac.Capability, m *metrics.Metrics, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := web.CurrentActor(c)
		if err := rbac.Authorize(actor, capability); err != nil {
			m.AccessDenied.WithLabelValues(string(capability)).Inc()
			log.Warn("access denied",
				zap.Uint("user_id", actor.UserID),
				zap.String("role", string(actor.Role)),
				zap.String("capability", string(capability)),
				zap.String("path", c.Request.URL.Path),
			)
			web.RenderError(c, http.StatusForbidden)
			return
		}
		c.Next()
	}
}

// MustActor returns the authenticated actor. Only valid behind RequireLogin.
func MustActor(c *gin.Context) rbac.Actor {
	actor, ok := web.CurrentActor(c)
	if !ok {
		panic("middleware: MustActor called without an authenticated actor")
	}
	return actor
}

// Gate hands out login and capability guards that share one metrics sink and logger
type Gate struct {
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewGate(m *metrics.Metrics, log *zap.Logger) *Gate {
	return &Gate{metrics: m, log: log}
}

// Login is RequireLogin
func (g *Gate) Login() gin.HandlerFunc {
	return RequireLogin()
}

// Require chains RequireLogin and RequireCapability for one route group
func (g *Gate) Require(capability rbac.Capability) []gin.HandlerFunc {
	return []gin.HandlerFunc{RequireLogin(), RequireCapability(capability, g.metrics, g.log)}
}
