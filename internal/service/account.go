package service

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/iliyamo/access-refresh/internal/model"
	"github.com/iliyamo/access-refresh/internal/queue"
	"github.com/iliyamo/access-refresh/internal/repository"
	"github.com/iliyamo/access-refresh/internal/token"
	"github.com/iliyamo/access-refresh/internal/utils"
)

// Magic-link and password-reset flows. Both rely on the same primitive: an
// opaque single-use token in the cache whose value is the owning user id.
// The tokens have no structure; possession within the TTL is the whole
// proof.

// CreateMagicLink issues an opaque sign-in token bound to the owner of an
// existing session. The caller must own the session.
func (s *AuthService) CreateMagicLink(ctx context.Context, sessionID string, ownerID int64) (string, error) {
	if _, err := s.sessions.FindByIDForUser(ctx, sessionID, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidAuthToken
		}
		return "", err
	}
	tok, err := token.NewRefreshToken()
	if err != nil {
		return "", err
	}
	if !s.cache.SetString(ctx, magicLinkKeyPrefix+tok, strconv.FormatInt(ownerID, 10), magicLinkTTL) {
		// Without the cache entry the link can never be redeemed.
		return "", ErrInvalidAuthToken
	}
	return tok, nil
}

// ConsumeMagicLink redeems a magic-link token exactly once and returns its
// owner. The entry is removed before the user lookup so a second redemption
// races against nothing.
func (s *AuthService) ConsumeMagicLink(ctx context.Context, tok string) (model.User, error) {
	key := magicLinkKeyPrefix + tok
	v, ok := s.cache.GetString(ctx, key)
	if !ok {
		return model.User{}, ErrInvalidAuthToken
	}
	s.cache.Remove(ctx, key)

	ownerID, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return model.User{}, ErrInvalidAuthToken
	}
	u, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return model.User{}, ErrInvalidAuthToken
	}
	return u, nil
}

// InitiatePasswordReset stores a reset token for the named user and
// publishes a notification event carrying callbackURL+token. It reports
// success even for unknown usernames so the endpoint cannot be used to
// enumerate accounts.
func (s *AuthService) InitiatePasswordReset(ctx context.Context, username, callbackURL string) error {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	tok, err := token.NewRefreshToken()
	if err != nil {
		return err
	}
	if !s.cache.SetString(ctx, passwordResetKeyPrefix+tok, strconv.FormatInt(u.ID, 10), passwordResetTTL) {
		return errors.New("password reset token could not be stored")
	}

	if s.notifier != nil {
		if err := s.notifier.PasswordReset(ctx, queue.PasswordResetMessage{
			Username: u.Username,
			Link:     callbackURL + tok,
		}); err != nil {
			log.Printf("auth: password reset publish failed: %v", err)
		}
	}
	return nil
}

// ResetPassword redeems a reset token, replaces the owner's password hash
// and revokes every live session so stolen pairs die with the old password.
func (s *AuthService) ResetPassword(ctx context.Context, newPassword, tok string) error {
	key := passwordResetKeyPrefix + tok
	v, ok := s.cache.GetString(ctx, key)
	if !ok {
		return ErrInvalidAuthToken
	}
	s.cache.Remove(ctx, key)

	ownerID, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return ErrInvalidAuthToken
	}
	hash, err := utils.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, ownerID, hash); err != nil {
		return err
	}
	if _, err := s.RevokeAllSessions(ctx, ownerID); err != nil {
		return err
	}
	return nil
}
