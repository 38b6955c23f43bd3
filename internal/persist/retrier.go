package persist

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultMaxAttempts = 5
	defaultBaseBackoff = 10 * time.Millisecond
	defaultMaxBackoff  = 1 * time.Second
)

var (
	// ErrNoRowsAffected reports a commit that succeeded at the store level but
	// changed zero records. It is a non-retryable soft failure unless the
	// retrier was configured with ZeroRowsIsNoop.
	ErrNoRowsAffected = errors.New("commit affected no rows")
	// ErrForeignConflict reports an optimistic-concurrency conflict on an
	// entity type this retrier does not manage. Never retried.
	ErrForeignConflict = errors.New("conflict on unmanaged entity")
	// ErrAttemptsExhausted reports that the managed conflict could not be
	// resolved within the configured attempt budget.
	ErrAttemptsExhausted = errors.New("commit attempts exhausted")
	// ErrNotConfigured reports an Op with no Apply function.
	ErrNotConfigured = errors.New("commit operation not configured")
)

// ConflictError is returned by store implementations when a write lost an
// optimistic-concurrency race. Entity names the record type; Current carries
// the authoritative values reloaded from the store so the write can be
// rebased onto them.
type ConflictError struct {
	Entity  string
	Current any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("optimistic concurrency conflict on %s", e.Entity)
}

// Config tunes a [Retrier].
type Config struct {
	// Entity is the single record type this retrier manages.
	Entity string
	// MaxAttempts bounds the retry loop, first attempt included.
	MaxAttempts int
	// BaseBackoff is the delay before the first retry; it doubles per attempt
	// up to MaxBackoff.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// ZeroRowsIsNoop treats a zero-rows commit as a successful no-op instead
	// of a soft failure.
	ZeroRowsIsNoop bool
}

// Op is one commit attempt. Apply performs the store write and returns the
// number of affected records. Rebase receives the authoritative values from a
// ConflictError and must fold the operation's original values onto them
// before the next attempt.
type Op struct {
	Apply  func(ctx context.Context) (int64, error)
	Rebase func(current any) error
}

// Retrier commits operations against a single entity type with conflict
// resolution. Safe for concurrent use.
type Retrier struct {
	config Config
}

// New returns a Retrier with cfg normalized to the default attempt budget and
// backoff curve.
func New(cfg Config) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	return &Retrier{config: cfg}
}

// Commit runs op until it succeeds, fails fatally, or the attempt budget is
// spent. A conflict on the managed entity triggers Rebase and a retry after
// backoff; any other error is returned as-is.
func (r *Retrier) Commit(ctx context.Context, op Op) error {
	if op.Apply == nil {
		return ErrNotConfigured
	}

	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := r.wait(ctx, attempt); err != nil {
				return err
			}
		}

		rows, err := op.Apply(ctx)
		if err == nil {
			if rows == 0 {
				if r.config.ZeroRowsIsNoop {
					return nil
				}
				return ErrNoRowsAffected
			}
			return nil
		}

		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			return err
		}
		if conflict.Entity != r.config.Entity {
			return fmt.Errorf("%w: %s", ErrForeignConflict, conflict.Entity)
		}
		if op.Rebase == nil {
			return conflict
		}
		if err := op.Rebase(conflict.Current); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, r.config.MaxAttempts)
}

func (r *Retrier) wait(ctx context.Context, attempt int) error {
	delay := r.config.BaseBackoff << (attempt - 1)
	if delay > r.config.MaxBackoff || delay <= 0 {
		delay = r.config.MaxBackoff
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
