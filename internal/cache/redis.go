package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// connectivity probe settings. Probing on every gateway call would put a
// PING in front of each request, so results are reused for a short window;
// a failed probe is retried on the next window and the gateway self-heals
// once Redis is reachable again.
const (
	probeInterval = time.Second
	probeTimeout  = 250 * time.Millisecond
)

// RedisProvider is the distributed cache variant. Entries written here are
// visible to every instance of the service, which is what makes the
// session-validity marker and the refresh-idempotency record work across a
// horizontally scaled deployment.
type RedisProvider struct {
	rdb *redis.Client

	lastProbe  atomic.Int64 // unix nanos of the last connectivity probe
	lastResult atomic.Bool
}

// NewRedisProvider wraps an existing client. A nil client yields a provider
// that permanently reports disconnected, which the gateway treats as "use
// the fallback".
func NewRedisProvider(rdb *redis.Client) *RedisProvider {
	return &RedisProvider{rdb: rdb}
}

// Connected probes the server with a short ping, at most once per probe
// window.
func (p *RedisProvider) Connected() bool {
	if p.rdb == nil {
		return false
	}
	now := time.Now().UnixNano()
	last := p.lastProbe.Load()
	if last != 0 && now-last < int64(probeInterval) {
		return p.lastResult.Load()
	}
	p.lastProbe.Store(now)

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	ok := p.rdb.Ping(ctx).Err() == nil
	p.lastResult.Store(ok)
	return ok
}

func (p *RedisProvider) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := p.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (p *RedisProvider) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return p.rdb.Set(ctx, key, value, ttl).Err()
}

func (p *RedisProvider) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return p.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (p *RedisProvider) Remove(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, key).Err()
}

func (p *RedisProvider) Exists(ctx context.Context, key string) (bool, error) {
	n, err := p.rdb.Exists(ctx, key).Result()
	return n > 0, err
}
