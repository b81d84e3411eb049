// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-refresh/internal/cache"
	"github.com/iliyamo/access-refresh/internal/handler"
	"github.com/iliyamo/access-refresh/internal/middleware"
	"github.com/iliyamo/access-refresh/internal/model"
	"github.com/iliyamo/access-refresh/internal/token"
)

// RegisterRoutes registers the health endpoint. It lives outside the
// authentication gate so load balancers can probe without a fingerprint.
func RegisterRoutes(e *echo.Echo, gw *cache.Gateway) {
	e.GET("/healthz", handler.Health(gw))
}

// RegisterAuth mounts every /v1 route behind the authentication gate. The
// gate enforces the fingerprint header and opportunistically resolves an
// identity; role checks on the protected group reject anonymous callers.
// The credential endpoints additionally sit behind the per-IP rate limiter.
func RegisterAuth(
	e *echo.Echo,
	a *handler.AuthHandler,
	codec *token.Codec,
	ratelimit echo.MiddlewareFunc,
) {
	v1 := e.Group("/v1")
	v1.Use(middleware.Authenticate(codec, a.Auth))

	// Credential exchange: no prior session required.
	auth := v1.Group("/auth")
	auth.Use(ratelimit)
	auth.POST("/register", a.Register)
	auth.POST("/login", a.Login)
	auth.POST("/refresh", a.Refresh)
	auth.POST("/magic-link", a.ConsumeMagicLink)
	auth.POST("/password-reset", a.InitiatePasswordReset)
	auth.POST("/password-reset/confirm", a.ConfirmPasswordReset)

	// Session management: requires a resolved identity with at least the
	// default user role.
	me := v1.Group("")
	me.Use(middleware.RequireRole(model.RoleUser))
	me.GET("/me", a.Me)
	me.GET("/sessions", a.ListSessions)
	me.DELETE("/sessions/:id", a.RevokeSession)
	me.DELETE("/sessions", a.RevokeAllSessions)
	me.POST("/magic-link", a.CreateMagicLink)
}
