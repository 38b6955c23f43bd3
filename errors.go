package authcore

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method is called before the
	// engine was built with its required collaborators.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrNotFound is the not-found indication collaborator stores must return
	// when a fetch matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrEmailNotConfirmed reports the sign-in precondition violation raised
	// when policy requires a confirmed email address and the account has none.
	// It is deliberately distinct from a SignInFailed outcome.
	ErrEmailNotConfirmed = errors.New("email address not confirmed")
	// ErrTokenInvalid is returned when a confirmation or reset token fails
	// signature, expiry, or structural checks.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenSubjectMismatch is returned when a confirmation token was issued
	// for a different account than the one being confirmed.
	ErrTokenSubjectMismatch = errors.New("token subject does not match target user")
	// ErrTwoFactorNotEnrolled is returned when a two-factor operation targets
	// an account without an authenticator secret.
	ErrTwoFactorNotEnrolled = errors.New("two-factor authenticator not enrolled")
	// ErrTwoFactorCodeInvalid is returned when a presented one-time code does
	// not verify against the account's secret.
	ErrTwoFactorCodeInvalid = errors.New("invalid two-factor code")
	// ErrSignInThrottled is returned when the failed-attempt budget for the
	// identifier or source IP is spent.
	ErrSignInThrottled = errors.New("sign-in attempts throttled")
	// ErrThrottleUnavailable is returned when the throttle backend cannot be
	// reached.
	ErrThrottleUnavailable = errors.New("throttle backend unavailable")
	// ErrRoleNotFound is returned when a referenced role does not exist in the
	// role store.
	ErrRoleNotFound = errors.New("role not found")
)
