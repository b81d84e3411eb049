package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-refresh/internal/middleware"
)

// Session management endpoints. All of them run behind the authentication
// gate plus a minimum-role check, so the identity values are present.

// ListSessions returns the caller's sessions, most recently issued first.
func (h *AuthHandler) ListSessions(c echo.Context) error {
	ownerID, _ := c.Get(middleware.CtxUserID).(int64)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	sessions, err := h.Auth.GetSessions(ctx, ownerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": sessions})
}

// RevokeSession deletes one of the caller's sessions by id.
func (h *AuthHandler) RevokeSession(c echo.Context) error {
	ownerID, _ := c.Get(middleware.CtxUserID).(int64)
	sessionID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	deleted, err := h.Auth.RevokeSession(ctx, sessionID, ownerID)
	if err != nil {
		return respondError(c, err)
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

// RevokeAllSessions deletes every session of the caller, including the one
// behind the presented access token.
func (h *AuthHandler) RevokeAllSessions(c echo.Context) error {
	ownerID, _ := c.Get(middleware.CtxUserID).(int64)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	count, err := h.Auth.RevokeAllSessions(ctx, ownerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"revoked": count})
}

// CreateMagicLink issues a single-use sign-in token bound to the caller's
// current session.
func (h *AuthHandler) CreateMagicLink(c echo.Context) error {
	ownerID, _ := c.Get(middleware.CtxUserID).(int64)
	sessionID, _ := c.Get(middleware.CtxSessionID).(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	tok, err := h.Auth.CreateMagicLink(ctx, sessionID, ownerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"token": tok})
}
