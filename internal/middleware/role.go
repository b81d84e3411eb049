package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-refresh/internal/model"
)

// RequireRole enforces a minimum role on protected routes. Roles are
// ordered, so the check is a single comparison against the identity that
// Authenticate attached. No identity means 401; an identity below the
// minimum means 403.
func RequireRole(min model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := c.Get(CtxUser).(model.User)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			if u.Role < min {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
