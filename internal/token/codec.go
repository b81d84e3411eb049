// Package token signs and validates access tokens and generates opaque
// refresh tokens. Access tokens are HS256 JWTs carrying three custom claims
// (user id, username, session id) beside the registered issuer/expiry/nbf
// set. Refresh tokens are structureless random strings; their lifetime lives
// in the session row, not in the token.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails signature, issuer,
// algorithm, lifetime or claim-shape checks. Callers collapse every variant
// into one failure so rejections do not leak which check tripped.
var ErrInvalidToken = errors.New("invalid access token")

// ErrTooEarly is returned by ValidateForRefresh when the token's expiry is
// still more than the reuse window away. Refreshing a fresh token would be
// needless rotation and would extend the value of a stolen pair.
var ErrTooEarly = errors.New("access token not yet eligible for refresh")

// Claims are the identity values embedded in an access token. They must
// match the referenced session's user id and session id after validation.
type Claims struct {
	UserID    int64
	Username  string
	SessionID string
}

// wireClaims is the on-the-wire claim layout. The user id travels as a
// string to keep the JSON integer-precision question out of the protocol.
type wireClaims struct {
	UserID    string `json:"id"`
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Codec issues and validates access tokens with a single symmetric key and
// a fixed HS256 algorithm. Zero clock skew: an expired token is expired.
type Codec struct {
	secret []byte
	issuer string
}

func NewCodec(secret, issuer string) *Codec {
	return &Codec{secret: []byte(secret), issuer: issuer}
}

// Sign builds a compact signed token for the given claims, valid from now
// until expiresAt.
func (c *Codec) Sign(claims Claims, expiresAt time.Time) (string, error) {
	now := time.Now().UTC()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, wireClaims{
		UserID:    strconv.FormatInt(claims.UserID, 10),
		Username:  claims.Username,
		SessionID: claims.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
		},
	})
	return t.SignedString(c.secret)
}

// Validate fully validates a token: signature, algorithm membership, issuer,
// not-before and expiry with zero leeway. Untrusted input never panics; any
// mismatch comes back as ErrInvalidToken.
func (c *Codec) Validate(raw string) (Claims, error) {
	var wc wireClaims
	_, err := jwt.ParseWithClaims(raw, &wc, c.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	return c.claimsFrom(wc)
}

// ValidateForRefresh validates everything except expiry, then applies the
// reuse-window policy: a token whose expiry is still more than reuseWindow
// in the future is rejected with ErrTooEarly.
func (c *Codec) ValidateForRefresh(raw string, reuseWindow time.Duration) (Claims, error) {
	var wc wireClaims
	_, err := jwt.ParseWithClaims(raw, &wc, c.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	// WithoutClaimsValidation skips the issuer check too, so enforce it here.
	if wc.Issuer != c.issuer || wc.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}
	if wc.ExpiresAt.Add(-reuseWindow).After(time.Now().UTC()) {
		return Claims{}, ErrTooEarly
	}
	return c.claimsFrom(wc)
}

func (c *Codec) key(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return c.secret, nil
}

func (c *Codec) claimsFrom(wc wireClaims) (Claims, error) {
	uid, err := strconv.ParseInt(wc.UserID, 10, 64)
	if err != nil || wc.SessionID == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: uid, Username: wc.Username, SessionID: wc.SessionID}, nil
}

// NewRefreshToken returns a cryptographically random 32-byte value encoded
// as unpadded URL-safe base64. No structure, no embedded expiry.
func NewRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
