package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestMemoryGateAllowsUpToLimit(t *testing.T) {
	gate := NewMemoryGate(5, time.UTC, zerolog.Nop())
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d, err := gate.Allow(ctx, "ip:203.0.113.9")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d should be allowed", i)
		require.Equal(t, 5-i, d.Remaining)
		require.Equal(t, 5, d.Limit)
	}

	for i := 0; i < 3; i++ {
		d, err := gate.Allow(ctx, "ip:203.0.113.9")
		require.NoError(t, err)
		require.False(t, d.Allowed)
		require.Zero(t, d.Remaining)
	}

	d, err := gate.Allow(ctx, "ip:203.0.113.10")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 4, d.Remaining)
}

func TestMemoryGateResetRestoresQuota(t *testing.T) {
	gate := NewMemoryGate(2, time.UTC, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := gate.Allow(ctx, "user:1")
		require.NoError(t, err)
	}
	gate.Reset()

	d, err := gate.Allow(ctx, "user:1")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 1, d.Remaining)
}

func TestMemoryGateRollsOverAtLocalMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	gate := NewMemoryGate(1, loc, zerolog.Nop())
	now := time.Date(2026, 5, 1, 16, 59, 0, 0, time.UTC) // 23:59 local
	gate.now = func() time.Time { return now }
	ctx := context.Background()

	d, err := gate.Allow(ctx, "user:1")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = gate.Allow(ctx, "user:1")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	now = now.Add(2 * time.Minute)
	d, err = gate.Allow(ctx, "user:1")
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestMemoryGateEmptyIdentityIsAnonymous(t *testing.T) {
	gate := NewMemoryGate(1, time.UTC, zerolog.Nop())
	ctx := context.Background()

	d, err := gate.Allow(ctx, "")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = gate.Allow(ctx, AnonymousIdentity)
	require.NoError(t, err)
	require.False(t, d.Allowed)
}

func TestMemoryGateConcurrentAllowNeverExceedsLimit(t *testing.T) {
	gate := NewMemoryGate(5, time.UTC, zerolog.Nop())
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := gate.Allow(ctx, "ip:198.51.100.1")
			if err == nil && d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 5, allowed)
}

func TestMemoryGateStartStopsWithContext(t *testing.T) {
	gate := NewMemoryGate(1, time.UTC, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, gate.Start(ctx))
	cancel()
}

func TestNextMidnight(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	got := nextMidnight(time.Date(2026, 12, 31, 20, 0, 0, 0, time.UTC), loc)
	require.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, loc).Unix(), got.Unix())
}

func TestRedisGateKey(t *testing.T) {
	gate := NewRedisGate(nil, 5, time.UTC)
	now := time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "quota:imagine:user:42:20260704", gate.key("user:42", now))
	require.Equal(t, "quota:imagine:anonymous:20260704", gate.key("  ", now))
}

func TestRedisGatePropagatesConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	gate := NewRedisGate(client, 5, time.UTC)
	_, err := gate.Allow(context.Background(), "user:1")
	require.Error(t, err)
}
