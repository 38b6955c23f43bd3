package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, cfg), mr
}

func TestCheckPassesBelowBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxAttempts: 3, Cooldown: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.Check(ctx, "alice@example.com", "203.0.113.9"))

	_, err := l.RecordFailure(ctx, "alice@example.com", "203.0.113.9")
	require.NoError(t, err)
	require.NoError(t, l.Check(ctx, "alice@example.com", "203.0.113.9"))
}

func TestCheckBlocksAtBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxAttempts: 2, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := l.RecordFailure(ctx, "alice@example.com", "")
		require.NoError(t, err)
	}

	assert.ErrorIs(t, l.Check(ctx, "alice@example.com", ""), ErrThrottled)
}

func TestPerIPCounting(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxAttempts: 2, Cooldown: time.Minute, PerIP: true})
	ctx := context.Background()

	// Different identifiers from the same address share the IP budget.
	_, err := l.RecordFailure(ctx, "alice@example.com", "203.0.113.9")
	require.NoError(t, err)
	_, err = l.RecordFailure(ctx, "bob@example.com", "203.0.113.9")
	require.NoError(t, err)

	assert.ErrorIs(t, l.Check(ctx, "carol@example.com", "203.0.113.9"), ErrThrottled)
	assert.NoError(t, l.Check(ctx, "carol@example.com", "198.51.100.1"))
}

func TestResetClearsCounters(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxAttempts: 1, Cooldown: time.Minute, PerIP: true})
	ctx := context.Background()

	_, err := l.RecordFailure(ctx, "alice@example.com", "203.0.113.9")
	require.NoError(t, err)
	require.ErrorIs(t, l.Check(ctx, "alice@example.com", "203.0.113.9"), ErrThrottled)

	require.NoError(t, l.Reset(ctx, "alice@example.com", "203.0.113.9"))
	assert.NoError(t, l.Check(ctx, "alice@example.com", "203.0.113.9"))
}

func TestWindowExpiry(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxAttempts: 1, Cooldown: time.Minute})
	ctx := context.Background()

	_, err := l.RecordFailure(ctx, "alice@example.com", "")
	require.NoError(t, err)
	require.ErrorIs(t, l.Check(ctx, "alice@example.com", ""), ErrThrottled)

	mr.FastForward(2 * time.Minute)
	assert.NoError(t, l.Check(ctx, "alice@example.com", ""))
}

func TestAttempts(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxAttempts: 5, Cooldown: time.Minute})
	ctx := context.Background()

	count, err := l.Attempts(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, count, "missing key reads as zero")

	for i := 0; i < 3; i++ {
		_, err := l.RecordFailure(ctx, "alice@example.com", "")
		require.NoError(t, err)
	}

	count, err = l.Attempts(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestUnavailableBackend(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxAttempts: 3, Cooldown: time.Minute})
	mr.Close()

	assert.ErrorIs(t, l.Check(context.Background(), "alice@example.com", ""), ErrUnavailable)

	_, err := l.RecordFailure(context.Background(), "alice@example.com", "")
	assert.ErrorIs(t, err, ErrUnavailable)
}
