package authcore

import (
	"io"

	internalaudit "github.com/halcyonlabs/authcore/internal/audit"
)

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

const (
	auditEventSignInSuccess     = "signin.success"
	auditEventSignInFailure     = "signin.failure"
	auditEventSignInLockedOut   = "signin.locked_out"
	auditEventSignInTwoFactor   = "signin.two_factor_required"
	auditEventSignInThrottled   = "signin.throttled"
	auditEventAutoLockout       = "signin.auto_lockout"
	auditEventAccountUpdated    = "account.updated"
	auditEventLockoutEnabled    = "account.lockout_enabled"
	auditEventUnlocked          = "account.unlocked"
	auditEventEmailConfirmed    = "account.email_confirmed"
	auditEventPhoneConfirmed    = "account.phone_confirmed"
	auditEventTwoFactorEnrolled = "account.two_factor_enrolled"
	auditEventTwoFactorRemoved  = "account.two_factor_removed"
	auditEventPasswordReset     = "account.password_reset"
	auditEventClaimAdded        = "account.claim_added"
)
