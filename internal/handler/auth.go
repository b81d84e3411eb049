package handler

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-refresh/internal/middleware"
	"github.com/iliyamo/access-refresh/internal/model"
	"github.com/iliyamo/access-refresh/internal/service"
)

// dbTimeout bounds the primary work of each request; best-effort side
// effects inside the service carry their own shorter timeouts.
const dbTimeout = 5 * time.Second

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,50}$`)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// ----- DTOs -----

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
type magicLinkReq struct {
	Token string `json:"token"`
}
type resetInitReq struct {
	Username    string `json:"username"`
	CallbackURL string `json:"callback_url"`
}
type resetConfirmReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type userPart struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
type authResp struct {
	User   userPart        `json:"user"`
	Tokens model.TokenPair `json:"tokens"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Username: u.Username, Role: u.Role.String()}
}

// clientContext pulls the pieces of the request the session binds to. The
// fingerprint was already enforced by the authentication gate.
func clientContext(c echo.Context) (ip, userAgent, fingerprint string) {
	fp, _ := c.Get(middleware.CtxFingerprint).(string)
	return c.RealIP(), c.Request().UserAgent(), fp
}

// Register creates a user and opens its first session in one call.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if !usernameRe.MatchString(req.Username) || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Auth.SignUp(ctx, req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	ip, ua, fp := clientContext(c)
	tokens, err := h.Auth.CreateSession(ctx, u, ip, ua, fp)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, authResp{User: toUserPart(u), Tokens: tokens})
}

// Login verifies credentials and opens a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Auth.SignIn(ctx, req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	ip, ua, fp := clientContext(c)
	tokens, err := h.Auth.CreateSession(ctx, u, ip, ua, fp)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, authResp{User: toUserPart(u), Tokens: tokens})
}

// Refresh exchanges a stale access token plus its refresh token for a new
// pair. Concurrent duplicates of the same exchange converge on one pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil ||
		strings.TrimSpace(req.AccessToken) == "" || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "access_token/refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	ip, ua, fp := clientContext(c)
	tokens, err := h.Auth.RefreshSession(ctx, req.AccessToken, req.RefreshToken, ip, ua, fp)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tokens": tokens})
}

// ConsumeMagicLink redeems a single-use sign-in token and opens a session
// for its owner.
func (h *AuthHandler) ConsumeMagicLink(c echo.Context) error {
	var req magicLinkReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Auth.ConsumeMagicLink(ctx, req.Token)
	if err != nil {
		return respondError(c, err)
	}
	ip, ua, fp := clientContext(c)
	tokens, err := h.Auth.CreateSession(ctx, u, ip, ua, fp)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, authResp{User: toUserPart(u), Tokens: tokens})
}

// InitiatePasswordReset always answers 202 so the endpoint cannot confirm
// whether a username exists.
func (h *AuthHandler) InitiatePasswordReset(c echo.Context) error {
	var req resetInitReq
	if err := c.Bind(&req); err != nil ||
		strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.CallbackURL) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/callback_url required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Auth.InitiatePasswordReset(ctx, req.Username, req.CallbackURL); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

// ConfirmPasswordReset redeems the reset token, sets the new password and
// kills every session of the owner.
func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	var req resetConfirmReq
	if err := c.Bind(&req); err != nil ||
		strings.TrimSpace(req.Token) == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token/new_password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, req.NewPassword, req.Token); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me echoes the identity the authentication gate resolved.
func (h *AuthHandler) Me(c echo.Context) error {
	u, _ := c.Get(middleware.CtxUser).(model.User)
	return c.JSON(http.StatusOK, toUserPart(u))
}
