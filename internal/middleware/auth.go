package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-refresh/internal/model"
	"github.com/iliyamo/access-refresh/internal/token"
)

// Context keys populated by Authenticate. Handlers read the resolved
// identity via c.Get.
const (
	CtxFingerprint = "fingerprint"
	CtxUser        = "user"
	CtxUserID      = "user_id"
	CtxUsername    = "username"
	CtxSessionID   = "session_id"
)

// AuthResolver is the slice of the auth service the gate needs: the
// cache-only validity check and the cached user lookup.
type AuthResolver interface {
	IsSessionValid(ctx context.Context, sessionID, fingerprint string) bool
	GetUserByID(ctx context.Context, id int64) (model.User, error)
}

// Authenticate extracts the caller's credential on every request. The
// fingerprint header is mandatory: without it the request is rejected before
// any token work. A well-formed bearer token is fully validated, checked
// against the session-validity marker and, on success, resolved into an
// identity attached to the context. Every failure past the fingerprint
// check is swallowed: the request continues unauthenticated and role checks
// reject it later.
func Authenticate(codec *token.Codec, auth AuthResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			fp := strings.TrimSpace(c.Request().Header.Get("X-Fingerprint"))
			if fp == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "fingerprint required"})
			}
			c.Set(CtxFingerprint, fp)

			authHeader := c.Request().Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				raw := strings.TrimPrefix(authHeader, "Bearer ")
				ctx := c.Request().Context()
				if claims, err := codec.Validate(raw); err == nil &&
					auth.IsSessionValid(ctx, claims.SessionID, fp) {
					if user, err := auth.GetUserByID(ctx, claims.UserID); err == nil {
						c.Set(CtxUser, user)
						c.Set(CtxUserID, claims.UserID)
						c.Set(CtxUsername, claims.Username)
						c.Set(CtxSessionID, claims.SessionID)
					}
				}
			}
			return next(c)
		}
	}
}
