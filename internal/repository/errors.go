// Package repository provides durable CRUD over users and sessions. The
// sentinel errors here let the service layer distinguish failure scenarios
// without inspecting driver errors; handlers translate domain errors into
// HTTP status codes at the boundary.
package repository

import "errors"

// ErrUserExists is returned when a sign-up collides with an existing
// username.
var ErrUserExists = errors.New("user already exists")

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")
