// Package cache unifies a distributed cache (Redis, shared across instances,
// may be unreachable) and a node-local in-process fallback behind one
// gateway. Cache entries are derived and disposable: nothing in here is
// authoritative for session existence, and a provider failure must never
// fail the surrounding operation.
package cache

import (
	"context"
	"time"
)

// Provider is the capability set both cache variants implement. Values are
// plain strings; the Gateway layers JSON on top. A ttl of zero means no
// expiry. Implementations return errors; the Gateway absorbs them.
type Provider interface {
	// Connected reports whether the provider can currently serve requests.
	// The local provider always returns true.
	Connected() bool

	// Get returns the value for key. ok is false on a miss.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key with the given ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX stores value only when key is absent and reports whether the
	// write happened. This is the atomic primitive the refresh-idempotency
	// record relies on.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
