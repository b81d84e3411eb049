package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisGateway(t *testing.T) (*Gateway, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewGateway(NewRedisProvider(rdb), NewMemoryProvider()), mr
}

func TestGatewayPrefersDistributedProvider(t *testing.T) {
	gw, mr := newRedisGateway(t)
	ctx := context.Background()

	require.False(t, gw.UsingFallback())
	require.True(t, gw.SetString(ctx, "session:abc", "fp-1", time.Minute))

	// The value must live in Redis, not in the local fallback.
	got, err := mr.Get("session:abc")
	require.NoError(t, err)
	assert.Equal(t, "fp-1", got)

	v, ok := gw.GetString(ctx, "session:abc")
	require.True(t, ok)
	assert.Equal(t, "fp-1", v)
}

func TestGatewayFallsBackWhenDisconnected(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close() // distributed provider is unreachable from the start

	gw := NewGateway(NewRedisProvider(rdb), NewMemoryProvider())
	ctx := context.Background()

	assert.True(t, gw.UsingFallback())
	require.True(t, gw.SetString(ctx, "k", "v", 0))
	v, ok := gw.GetString(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestGatewayAbsorbsProviderFailures(t *testing.T) {
	gw, mr := newRedisGateway(t)
	ctx := context.Background()

	// Force selection of the (about to die) distributed provider, then kill
	// it between the connectivity probe and the operation.
	require.False(t, gw.UsingFallback())
	mr.Close()

	v, ok := gw.GetString(ctx, "missing")
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.False(t, gw.Exists(ctx, "missing"))
}

func TestGatewayJSONRoundTrip(t *testing.T) {
	gw, _ := newRedisGateway(t)
	ctx := context.Background()

	type pair struct {
		Access  string `json:"access_token"`
		Refresh string `json:"refresh_token"`
	}
	in := pair{Access: "a.b.c", Refresh: "r1"}
	require.True(t, gw.SetJSON(ctx, "reused_refresh:r0", in, time.Minute))

	var out pair
	require.True(t, gw.GetJSON(ctx, "reused_refresh:r0", &out))
	assert.Equal(t, in, out)

	assert.False(t, gw.GetJSON(ctx, "reused_refresh:absent", &out))
}

func TestGatewaySetJSONNXIsFirstWriterWins(t *testing.T) {
	gw, _ := newRedisGateway(t)
	ctx := context.Background()

	assert.True(t, gw.SetJSONNX(ctx, "idem", "winner", time.Minute))
	assert.False(t, gw.SetJSONNX(ctx, "idem", "loser", time.Minute))

	var got string
	require.True(t, gw.GetJSON(ctx, "idem", &got))
	assert.Equal(t, "winner", got)
}

func TestGatewayRemove(t *testing.T) {
	gw, _ := newRedisGateway(t)
	ctx := context.Background()

	require.True(t, gw.SetString(ctx, "k", "v", 0))
	require.True(t, gw.Remove(ctx, "k"))
	_, ok := gw.GetString(ctx, "k")
	assert.False(t, ok)
}

func TestRedisEntriesExpire(t *testing.T) {
	gw, mr := newRedisGateway(t)
	ctx := context.Background()

	require.True(t, gw.SetString(ctx, "short", "v", time.Second))
	mr.FastForward(2 * time.Second)
	_, ok := gw.GetString(ctx, "short")
	assert.False(t, ok)
}

func TestMemoryProviderTTLAndSetNX(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	require.NoError(t, p.Set(ctx, "k", "v", 10*time.Millisecond))
	_, ok, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok, err = p.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// An expired entry does not block SetNX.
	stored, err := p.SetNX(ctx, "k", "v2", 0)
	require.NoError(t, err)
	assert.True(t, stored)
	stored, err = p.SetNX(ctx, "k", "v3", 0)
	require.NoError(t, err)
	assert.False(t, stored)
}
