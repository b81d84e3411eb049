package model

// Session mirrors the 'sessions' table. A session binds a user, a refresh
// token and the client context the pair was issued to. The refresh token
// value is unique across all live sessions; geolocation fields are
// best-effort and nullable. Timestamps are unix seconds to keep expiry
// comparisons trivial in both SQL and Go.
type Session struct {
	SessionID    string `json:"session_id"` // UUID primary key
	UserID       int64  `json:"user_id"`
	RefreshToken string `json:"-"`
	Fingerprint  string `json:"-"`
	UserAgent    string `json:"user_agent"`
	IPAddress    string `json:"ip_address"`

	Country     *string  `json:"country,omitempty"`
	CountryCode *string  `json:"country_code,omitempty"`
	City        *string  `json:"city,omitempty"`
	ZipCode     *string  `json:"zip_code,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Provider    *string  `json:"provider,omitempty"`

	IssuedAt      int64 `json:"issued_at"`
	ExpiresAt     int64 `json:"expires_at"`
	LastRefreshAt int64 `json:"last_refresh_at"`
}

// TokenPair is the credential pair returned to clients. It is derived from a
// Session plus signing state and never persisted as its own entity. The JSON
// shape doubles as the refresh-idempotency cache record, so both fields must
// round-trip exactly.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
