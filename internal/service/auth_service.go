// Package service implements the token issuance, refresh-rotation and
// session-validity protocol. AuthService is the sole writer of session rows
// and cache entries; the token codec and the stores are stateless services
// it calls.
package service

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/access-refresh/internal/cache"
	"github.com/iliyamo/access-refresh/internal/config"
	"github.com/iliyamo/access-refresh/internal/model"
	"github.com/iliyamo/access-refresh/internal/queue"
	"github.com/iliyamo/access-refresh/internal/repository"
	"github.com/iliyamo/access-refresh/internal/token"
	"github.com/iliyamo/access-refresh/internal/utils"
)

// Cache key namespaces. Each purpose gets its own prefix and TTL:
// session markers live as long as an access token, idempotency records as
// long as the reuse window, entity cache and one-shot tokens have their own.
const (
	sessionKeyPrefix       = "session:"
	reusedRefreshKeyPrefix = "reused_refresh:"
	userKeyPrefix          = "user:"
	magicLinkKeyPrefix     = "magic_link:"
	passwordResetKeyPrefix = "pwreset:"

	magicLinkTTL     = 5 * time.Minute
	passwordResetTTL = 15 * time.Minute

	// sideEffectTimeout bounds fire-and-forget cache writes that run
	// detached from the request context.
	sideEffectTimeout = 2 * time.Second
)

// UserStore is the narrow persistence contract AuthService needs for users.
// Implemented by repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// SessionStore is the persistence contract for session rows. Implemented by
// repository.SessionRepo.
type SessionStore interface {
	Add(ctx context.Context, s model.Session) error
	Update(ctx context.Context, s model.Session) error
	Delete(ctx context.Context, sessionID string, ownerID int64) (bool, error)
	DeleteAllForUser(ctx context.Context, ownerID int64) (int64, error)
	FindByIDForUser(ctx context.Context, sessionID string, userID int64) (model.Session, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Session, error)
	ListIDsByUser(ctx context.Context, userID int64) ([]string, error)
	EnsureSessionLimit(ctx context.Context, userID int64, max int) error
}

// Notifier publishes notification events. Implemented by queue.Publisher;
// nil disables publishing.
type Notifier interface {
	AccountVerification(ctx context.Context, msg queue.AccountVerificationMessage) error
	PasswordReset(ctx context.Context, msg queue.PasswordResetMessage) error
}

// AuthService orchestrates sign-up/sign-in, session creation, the
// refresh-rotation protocol, revocation and the fast-path validity check.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	codec    *token.Codec
	cache    *cache.Gateway
	geo      Geolocator
	notifier Notifier
	cfg      config.Config
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	codec *token.Codec,
	gw *cache.Gateway,
	geo Geolocator,
	notifier Notifier,
	cfg config.Config,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		codec:    codec,
		cache:    gw,
		geo:      geo,
		notifier: notifier,
		cfg:      cfg,
	}
}

// SignUp creates a user with a hashed password. A username collision maps to
// ErrUserAlreadyExists. A verification event is published best-effort.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (model.User, error) {
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	u, err := s.users.Create(ctx, username, hash)
	if errors.Is(err, repository.ErrUserExists) {
		return model.User{}, ErrUserAlreadyExists
	}
	if err != nil {
		return model.User{}, err
	}

	if s.notifier != nil {
		go func(username string) {
			nctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
			defer cancel()
			if err := s.notifier.AccountVerification(nctx, queue.AccountVerificationMessage{
				Username: username,
			}); err != nil {
				log.Printf("auth: account verification publish failed: %v", err)
			}
		}(u.Username)
	}
	return u, nil
}

// SignIn verifies credentials and returns the user. An unknown username and
// a wrong password are the same failure.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (model.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// CreateSession enforces the per-user cap, persists a new session and
// returns its credential pair. The validity marker write is fire-and-forget:
// losing it only costs a fast-path false negative until the next refresh.
func (s *AuthService) CreateSession(ctx context.Context, user model.User, ip, userAgent, fingerprint string) (model.TokenPair, error) {
	if err := s.sessions.EnsureSessionLimit(ctx, user.ID, s.cfg.SessionCap); err != nil {
		return model.TokenPair{}, err
	}

	sess, err := s.buildSession(ctx, user.ID, ip, userAgent, fingerprint)
	if err != nil {
		return model.TokenPair{}, err
	}
	if err := s.sessions.Add(ctx, sess); err != nil {
		return model.TokenPair{}, err
	}

	s.writeSessionMarker(sess.SessionID, fingerprint)

	access, err := s.signAccessToken(user, sess.SessionID)
	if err != nil {
		return model.TokenPair{}, err
	}
	return model.TokenPair{AccessToken: access, RefreshToken: sess.RefreshToken}, nil
}

// RefreshSession executes the rotation protocol. Steps run strictly in
// order: validate within the reuse window, load user+session, consult the
// idempotency record, verify the presented refresh token, rotate, persist,
// cache. Concurrent duplicates converge on the idempotency record; the
// winner of the set-if-absent write defines the pair everyone returns.
//
// Note: the replacement session keeps the prior refresh-token value; only
// the access token is re-issued. See DESIGN.md for the rationale of keeping
// this semantics.
func (s *AuthService) RefreshSession(ctx context.Context, accessToken, refreshToken, ip, userAgent, fingerprint string) (model.TokenPair, error) {
	claims, err := s.codec.ValidateForRefresh(accessToken, s.cfg.ReuseWindow)
	if err != nil {
		// "too early" and "invalid" surface identically.
		return model.TokenPair{}, ErrInvalidAuthToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return model.TokenPair{}, ErrInvalidAuthToken
	}
	sess, err := s.sessions.FindByIDForUser(ctx, claims.SessionID, claims.UserID)
	if err != nil ||
		sess.Fingerprint != fingerprint ||
		sess.ExpiresAt <= time.Now().Unix() {
		return model.TokenPair{}, ErrInvalidAuthToken
	}

	// A hit here means this refresh token was already rotated moments ago;
	// hand the concurrent caller the exact same pair instead of erroring.
	idemKey := reusedRefreshKeyPrefix + refreshToken
	var cached model.TokenPair
	if s.cache.GetJSON(ctx, idemKey, &cached) {
		return cached, nil
	}

	// Past the idempotency window a mismatch is the theft/reuse signal.
	if sess.RefreshToken != refreshToken {
		return model.TokenPair{}, ErrInvalidAuthToken
	}

	updated, err := s.buildSession(ctx, user.ID, ip, userAgent, fingerprint)
	if err != nil {
		return model.TokenPair{}, err
	}
	updated.SessionID = sess.SessionID
	updated.IssuedAt = sess.IssuedAt
	updated.RefreshToken = sess.RefreshToken // prior value survives rotation
	updated.LastRefreshAt = time.Now().Unix()

	if err := s.sessions.Update(ctx, updated); err != nil {
		return model.TokenPair{}, err
	}

	s.writeSessionMarker(updated.SessionID, fingerprint)

	access, err := s.signAccessToken(user, updated.SessionID)
	if err != nil {
		return model.TokenPair{}, err
	}
	pair := model.TokenPair{AccessToken: access, RefreshToken: sess.RefreshToken}

	// Atomic set-if-absent closes the check-then-act window: when two
	// first-time refreshes race past the lookup above, the loser adopts the
	// winner's pair so both callers see bit-identical tokens.
	if !s.cache.SetJSONNX(ctx, idemKey, pair, s.cfg.ReuseWindow) {
		var winner model.TokenPair
		if s.cache.GetJSON(ctx, idemKey, &winner) {
			return winner, nil
		}
	}
	return pair, nil
}

// RevokeSession deletes the owner's session row and its validity marker
// concurrently; reports whether a row was deleted.
func (s *AuthService) RevokeSession(ctx context.Context, sessionID string, ownerID int64) (bool, error) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.cache.Remove(ctx, sessionKeyPrefix+sessionID)
	}()
	deleted, err := s.sessions.Delete(ctx, sessionID, ownerID)
	<-done
	return deleted, err
}

// RevokeAllSessions deletes every session of the owner, invalidates every
// marker and returns the number of rows deleted.
func (s *AuthService) RevokeAllSessions(ctx context.Context, ownerID int64) (int64, error) {
	ids, err := s.sessions.ListIDsByUser(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.cache.Remove(ctx, sessionKeyPrefix+id)
	}
	return s.sessions.DeleteAllForUser(ctx, ownerID)
}

// GetSessions returns the owner's sessions, most recently issued first.
func (s *AuthService) GetSessions(ctx context.Context, ownerID int64) ([]model.Session, error) {
	return s.sessions.ListByUser(ctx, ownerID)
}

// IsSessionValid is the per-request fast path: true iff the cached marker
// for sessionID equals the caller's fingerprint. No database access; a miss
// reads as invalid. Fail-closed trades a small false-negative window after
// cache eviction for never paying a storage round trip here.
func (s *AuthService) IsSessionValid(ctx context.Context, sessionID, fingerprint string) bool {
	if fingerprint == "" {
		return false
	}
	v, ok := s.cache.GetString(ctx, sessionKeyPrefix+sessionID)
	return ok && v == fingerprint
}

// GetUserByID resolves a user, consulting the entity cache first. Used by
// the authentication gate to attach a full identity without a database read
// on every request.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	key := userKeyPrefix + strconv.FormatInt(id, 10)
	var cached model.User
	if s.cache.GetJSON(ctx, key, &cached) && cached.ID == id {
		return cached, nil
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	s.cache.SetJSON(ctx, key, u, s.cfg.AccessTTL)
	return u, nil
}

// buildSession assembles a fresh session row: new id, new refresh token,
// full lifetime, best-effort geolocation. The lookup is bounded by its own
// timeout and can never fail session creation.
func (s *AuthService) buildSession(ctx context.Context, userID int64, ip, userAgent, fingerprint string) (model.Session, error) {
	refresh, err := token.NewRefreshToken()
	if err != nil {
		return model.Session{}, err
	}

	sess := model.Session{
		SessionID:    uuid.NewString(),
		UserID:       userID,
		RefreshToken: refresh,
		Fingerprint:  fingerprint,
		UserAgent:    userAgent,
		IPAddress:    ip,
		IssuedAt:     time.Now().Unix(),
		ExpiresAt:    time.Now().Add(s.cfg.SessionTTL).Unix(),
	}

	if s.geo != nil {
		gctx, cancel := context.WithTimeout(ctx, s.cfg.GeoTimeout)
		defer cancel()
		if loc, err := s.geo.Lookup(gctx, ip); err != nil {
			log.Printf("auth: geolocation lookup for %s failed: %v", ip, err)
		} else {
			sess.Country = &loc.Country
			sess.CountryCode = &loc.CountryCode
			sess.City = &loc.City
			sess.ZipCode = &loc.Zip
			sess.Latitude = &loc.Lat
			sess.Longitude = &loc.Lon
			sess.Provider = &loc.As
		}
	}
	return sess, nil
}

// writeSessionMarker stores the session-validity marker without delaying the
// caller. A lost write means the fast path answers false until the next
// rotation rewrites it.
func (s *AuthService) writeSessionMarker(sessionID, fingerprint string) {
	go func() {
		mctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if !s.cache.SetString(mctx, sessionKeyPrefix+sessionID, fingerprint, s.cfg.AccessTTL) {
			log.Printf("auth: session marker write failed for %s", sessionID)
		}
	}()
}

func (s *AuthService) signAccessToken(user model.User, sessionID string) (string, error) {
	return s.codec.Sign(token.Claims{
		UserID:    user.ID,
		Username:  user.Username,
		SessionID: sessionID,
	}, time.Now().UTC().Add(s.cfg.AccessTTL))
}
