package config

import (
	"log"
	"sync/atomic"
)

// Store holds the current Config snapshot. Readers call Current() and get an
// immutable value; Reload() builds a fresh snapshot from the environment and
// swaps it in atomically, so in-flight requests keep the snapshot they
// started with.
type Store struct {
	cur atomic.Pointer[Config]
}

// NewStore loads the initial snapshot and returns a Store wrapping it.
func NewStore() *Store {
	s := &Store{}
	cfg := Load()
	s.cur.Store(&cfg)
	return s
}

// Current returns the active configuration snapshot.
func (s *Store) Current() Config {
	return *s.cur.Load()
}

// Reload re-reads the environment and swaps in a new snapshot. Intended to
// be driven by a change signal (SIGHUP in cmd/server).
func (s *Store) Reload() {
	cfg := Load()
	s.cur.Store(&cfg)
	log.Printf("config: reloaded (env=%s)", cfg.Env)
}
