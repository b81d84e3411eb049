package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Gateway selects between the distributed and the local provider per call
// and absorbs every provider failure. Callers see misses and failed writes,
// never errors: the cache is an optimization layer and the read/refresh
// paths must degrade gracefully when it has nothing to offer.
type Gateway struct {
	primary  Provider
	fallback Provider
}

// NewGateway builds a gateway over a primary (distributed) and a fallback
// (local) provider.
func NewGateway(primary, fallback Provider) *Gateway {
	return &Gateway{primary: primary, fallback: fallback}
}

// Current returns the distributed provider while it reports itself
// connected, otherwise the local one. No sticky state: the choice is
// re-evaluated on every call so the gateway heals itself when connectivity
// returns.
func (g *Gateway) Current() Provider {
	if g.primary != nil && g.primary.Connected() {
		return g.primary
	}
	return g.fallback
}

// UsingFallback reports whether calls are currently served by the local
// provider. Exposed for the health endpoint.
func (g *Gateway) UsingFallback() bool {
	return g.primary == nil || !g.primary.Connected()
}

// GetString returns the raw string under key, or "" and false on a miss or
// any provider failure.
func (g *Gateway) GetString(ctx context.Context, key string) (string, bool) {
	v, ok, err := g.Current().Get(ctx, key)
	if err != nil {
		return "", false
	}
	return v, ok
}

// SetString writes a raw string and reports whether the write landed.
func (g *Gateway) SetString(ctx context.Context, key, value string, ttl time.Duration) bool {
	return g.Current().Set(ctx, key, value, ttl) == nil
}

// GetJSON unmarshals the entry under key into dest. A miss, a provider
// failure or a corrupt payload all come back as false with dest untouched
// or partially filled; callers fall through to the source of truth.
func (g *Gateway) GetJSON(ctx context.Context, key string, dest any) bool {
	raw, ok, err := g.Current().Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), dest) == nil
}

// SetJSON marshals value and stores it under key.
func (g *Gateway) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		return false
	}
	return g.Current().Set(ctx, key, string(raw), ttl) == nil
}

// SetJSONNX marshals value and stores it only when key is absent. Returns
// true when this call won the write. A provider failure reads as "not
// stored", which callers must treat as losing the race.
func (g *Gateway) SetJSONNX(ctx context.Context, key string, value any, ttl time.Duration) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		return false
	}
	stored, err := g.Current().SetNX(ctx, key, string(raw), ttl)
	return err == nil && stored
}

// Remove deletes key; failures are absorbed.
func (g *Gateway) Remove(ctx context.Context, key string) bool {
	return g.Current().Remove(ctx, key) == nil
}

// Exists reports presence of key; failures read as absent.
func (g *Gateway) Exists(ctx context.Context, key string) bool {
	ok, err := g.Current().Exists(ctx, key)
	return err == nil && ok
}
