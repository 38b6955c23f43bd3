package authcore

import (
	"context"
	"log"
	"time"

	internalaudit "github.com/halcyonlabs/authcore/internal/audit"
	"github.com/halcyonlabs/authcore/internal/persist"
	"github.com/halcyonlabs/authcore/internal/throttle"
	"github.com/halcyonlabs/authcore/password"
	"github.com/halcyonlabs/authcore/token"
	"github.com/halcyonlabs/authcore/totp"
)

// Engine is the authentication orchestration engine. Build one through
// [Builder.Build]; after that every method is safe for concurrent use.
type Engine struct {
	config Config

	users    UserStore
	claims   ClaimStore
	activity LoginActivityStore
	roles    RoleStore
	locator  DeviceLocator

	hasher *password.Hasher
	issuer *token.Issuer
	totp   *totp.Provider

	userRetrier     *persist.Retrier
	activityRetrier *persist.Retrier
	throttle        *throttle.Limiter
	audit           *internalaudit.Dispatcher

	warn func(format string, args ...any)
	now  func() time.Time
}

// Close drains and stops the audit dispatcher. Safe on a nil engine.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) ready() bool {
	return e != nil && e.users != nil && e.hasher != nil && e.issuer != nil
}

func (e *Engine) emitAudit(ctx context.Context, kind string, success bool, userID, ip string, cause error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: e.now(),
		Kind:      kind,
		UserID:    userID,
		IP:        ip,
		Success:   success,
		Metadata:  metadata,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	e.audit.Emit(ctx, event)
}

func (e *Engine) warnf(format string, args ...any) {
	if e == nil {
		return
	}
	if e.warn != nil {
		e.warn(format, args...)
		return
	}
	log.Printf(format, args...)
}

// commitUser applies mutate to user and commits through the user retrier.
// On an optimistic-concurrency conflict the mutation is replayed onto the
// authoritative record before the retry, so a conflicting concurrent write is
// never silently overwritten wholesale.
func (e *Engine) commitUser(ctx context.Context, user *User, mutate func(*User)) error {
	mutate(user)

	op := persist.Op{
		Apply: func(ctx context.Context) (int64, error) {
			return e.users.Update(ctx, user)
		},
		Rebase: func(current any) error {
			cur, ok := current.(*User)
			if !ok || cur == nil {
				return ErrNotFound
			}
			*user = *cur
			mutate(user)
			return nil
		},
	}

	return e.userRetrier.Commit(ctx, op)
}
