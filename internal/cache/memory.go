package cache

import (
	"context"
	"sync"
	"time"
)

// sweepThreshold bounds how large the map may grow before a full sweep of
// expired entries runs inline with a write.
const sweepThreshold = 4096

type memoryEntry struct {
	value    string
	deadline time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

// MemoryProvider is the node-local fallback variant: always connected, never
// shared. When the service runs on a single node it behaves like the
// distributed provider; in a multi-instance deployment entries written here
// are invisible to the other nodes, which the callers tolerate because cache
// state is never authoritative.
type MemoryProvider struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{entries: make(map[string]memoryEntry)}
}

// Connected always reports true for the in-process provider.
func (p *MemoryProvider) Connected() bool { return true }

func (p *MemoryProvider) Get(_ context.Context, key string) (string, bool, error) {
	p.mu.RLock()
	e, ok := p.entries[key]
	p.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if e.expired(time.Now()) {
		p.mu.Lock()
		// Re-check under the write lock; another writer may have replaced it.
		if cur, ok := p.entries[key]; ok && cur.expired(time.Now()) {
			delete(p.entries, key)
		}
		p.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (p *MemoryProvider) Set(_ context.Context, key, value string, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store(key, value, ttl)
	return nil
}

func (p *MemoryProvider) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[key]; ok && !e.expired(now) {
		return false, nil
	}
	p.store(key, value, ttl)
	return true, nil
}

func (p *MemoryProvider) Remove(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.entries, key)
	p.mu.Unlock()
	return nil
}

func (p *MemoryProvider) Exists(_ context.Context, key string) (bool, error) {
	p.mu.RLock()
	e, ok := p.entries[key]
	p.mu.RUnlock()
	return ok && !e.expired(time.Now()), nil
}

// store writes an entry and sweeps expired ones when the map has grown past
// the threshold. Callers must hold the write lock.
func (p *MemoryProvider) store(key, value string, ttl time.Duration) {
	now := time.Now()
	if len(p.entries) >= sweepThreshold {
		for k, e := range p.entries {
			if e.expired(now) {
				delete(p.entries, k)
			}
		}
	}
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.deadline = now.Add(ttl)
	}
	p.entries[key] = e
}
