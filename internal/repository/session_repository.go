package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/access-refresh/internal/model"
)

const sessionColumns = `session_id,user_id,refresh_token,fingerprint,user_agent,ip_address,
country,country_code,city,zip_code,latitude,longitude,provider,
issued_at,expires_at,last_refresh_at`

// SessionRepo persists session rows. It is the single source of truth for
// session existence; cache markers are derived from it and disposable.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Add inserts a session row.
func (r *SessionRepo) Add(ctx context.Context, s model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.SessionID, s.UserID, s.RefreshToken, s.Fingerprint, s.UserAgent, s.IPAddress,
		s.Country, s.CountryCode, s.City, s.ZipCode, s.Latitude, s.Longitude, s.Provider,
		s.IssuedAt, s.ExpiresAt, s.LastRefreshAt)
	return err
}

// Update replaces the full row identified by s.SessionID. Used by rotation,
// which rebuilds the session and writes it back under the same id.
func (r *SessionRepo) Update(ctx context.Context, s model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE sessions SET user_id=?, refresh_token=?, fingerprint=?, user_agent=?, ip_address=?,
country=?, country_code=?, city=?, zip_code=?, latitude=?, longitude=?, provider=?,
issued_at=?, expires_at=?, last_refresh_at=? WHERE session_id=?`,
		s.UserID, s.RefreshToken, s.Fingerprint, s.UserAgent, s.IPAddress,
		s.Country, s.CountryCode, s.City, s.ZipCode, s.Latitude, s.Longitude, s.Provider,
		s.IssuedAt, s.ExpiresAt, s.LastRefreshAt, s.SessionID)
	return err
}

// Delete removes the session scoped by owner and reports whether a row went
// away.
func (r *SessionRepo) Delete(ctx context.Context, sessionID string, ownerID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM sessions WHERE session_id=? AND user_id=?", sessionID, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteAllForUser removes every session of the owner and returns the count.
func (r *SessionRepo) DeleteAllForUser(ctx context.Context, ownerID int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM sessions WHERE user_id=?", ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindByIDForUser fetches the session only when it belongs to userID.
func (r *SessionRepo) FindByIDForUser(ctx context.Context, sessionID string, userID int64) (model.Session, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_id=? AND user_id=? LIMIT 1`,
		sessionID, userID))
}

// ListByUser returns the owner's sessions, most recently issued first.
func (r *SessionRepo) ListByUser(ctx context.Context, userID int64) ([]model.Session, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id=? ORDER BY issued_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListIDsByUser returns every session id belonging to the owner.
func (r *SessionRepo) ListIDsByUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT session_id FROM sessions WHERE user_id=?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EnsureSessionLimit makes room for one new session: it keeps the user's
// max-1 newest-expiring rows and deletes the rest, so the insert that
// follows lands the user at no more than max live sessions. Ties on
// expires_at fall back to storage order.
func (r *SessionRepo) EnsureSessionLimit(ctx context.Context, userID int64, max int) error {
	if max < 1 {
		return nil
	}
	// MySQL cannot delete from a table referenced in a subquery directly;
	// the derived table works around that.
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id=? AND session_id NOT IN (
			SELECT session_id FROM (
				SELECT session_id FROM sessions WHERE user_id=?
				ORDER BY expires_at DESC, session_id ASC LIMIT ?
			) keep
		)`,
		userID, userID, max-1)
	return err
}

type rowScanner interface{ Scan(dest ...any) error }

func (r *SessionRepo) scanOne(row *sql.Row) (model.Session, error) {
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	return s, err
}

func scanSession(row rowScanner) (model.Session, error) {
	var s model.Session
	err := row.Scan(&s.SessionID, &s.UserID, &s.RefreshToken, &s.Fingerprint, &s.UserAgent, &s.IPAddress,
		&s.Country, &s.CountryCode, &s.City, &s.ZipCode, &s.Latitude, &s.Longitude, &s.Provider,
		&s.IssuedAt, &s.ExpiresAt, &s.LastRefreshAt)
	return s, err
}
