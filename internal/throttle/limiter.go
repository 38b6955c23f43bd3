package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrThrottled indicates the identifier or IP has exhausted its failed
	// attempt budget for the current window.
	ErrThrottled = errors.New("sign-in attempts throttled")
	// ErrUnavailable indicates the throttle backend is unreachable.
	ErrUnavailable = errors.New("throttle backend unavailable")
)

// Config holds throttle tuning parameters.
type Config struct {
	MaxAttempts int
	Cooldown    time.Duration
	PerIP       bool
}

// Limiter tracks failed sign-in attempts in Redis fixed windows.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: redisClient, config: cfg}
}

// Check reports whether the identifier+IP pair is still within its attempt
// budget. Returns ErrThrottled when the budget is spent.
func (l *Limiter) Check(ctx context.Context, identifier, ip string) error {
	if err := l.checkCounter(ctx, identifierKey(identifier)); err != nil {
		return err
	}

	if l.config.PerIP && ip != "" {
		if err := l.checkCounter(ctx, ipKey(ip)); err != nil {
			return err
		}
	}

	return nil
}

// RecordFailure counts one failed attempt for the identifier+IP pair and
// returns the identifier's running total for the current window.
func (l *Limiter) RecordFailure(ctx context.Context, identifier, ip string) (int64, error) {
	count, err := l.incrementWithTTL(ctx, identifierKey(identifier))
	if err != nil {
		return 0, err
	}

	if l.config.PerIP && ip != "" {
		if _, err := l.incrementWithTTL(ctx, ipKey(ip)); err != nil {
			return 0, err
		}
	}

	return count, nil
}

// Reset clears the counters for the identifier+IP pair. Called after a
// successful sign-in.
func (l *Limiter) Reset(ctx context.Context, identifier, ip string) error {
	keys := []string{identifierKey(identifier)}
	if l.config.PerIP && ip != "" {
		keys = append(keys, ipKey(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Attempts returns the current failed-attempt count for an identifier.
// Missing keys return zero and do not reveal account existence.
func (l *Limiter) Attempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.redis.Get(ctx, identifierKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if count >= int64(l.config.MaxAttempts) {
		return ErrThrottled
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Fixed-window semantics: the TTL is set only for the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return count, nil
}

func identifierKey(identifier string) string {
	return "sia:id:" + identifier
}

func ipKey(ip string) string {
	return "sia:ip:" + ip
}
