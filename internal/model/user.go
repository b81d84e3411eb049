package model

import "time"

// Role orders user privileges. Comparisons use the numeric value, so a
// handler-level minimum-role check is a single <. The gaps leave room for
// intermediate roles without renumbering.
type Role uint8

const (
	RoleNone  Role = 0
	RoleUser  Role = 100
	RoleAdmin Role = 200
)

// String returns the lowercase role name used in JSON responses.
func (r Role) String() string {
	switch {
	case r >= RoleAdmin:
		return "admin"
	case r >= RoleUser:
		return "user"
	default:
		return "none"
	}
}

// User mirrors the 'users' table. The password hash is opaque to everything
// except the bcrypt verifier; it is verified, never compared. Users are
// created on sign-up and never deleted by this service.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
