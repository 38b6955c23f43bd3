// Package authcore provides an embeddable authentication engine: credential
// verification, account security state (lockout, two-factor requirement,
// email/phone confirmation), signed session token issuance, and time-based
// one-time-password verification.
//
// The package is consumed as a library by a host application, not as a
// standalone service. The host supplies the durable stores ([UserStore],
// [ClaimStore], [LoginActivityStore]) and an optional [DeviceLocator]; the
// engine owns the sign-in state machine and every security-sensitive
// decision along the way.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build]. The engine holds no long-lived
// mutable state of its own: every operation is a function over its inputs
// plus the external stores.
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// value types, and sentinel errors. Persistence retry, audit dispatch, and
// the failed-attempt throttle live under internal/ and are never exported.
// The leaf packages password, totp, and token are usable on their own.
//
// # What this package must NOT do
//
//   - Define a wire protocol or transport: that is the host's concern.
//   - Persist entities itself: all durable writes go through the host's
//     stores, wrapped in the conflict-retry committer.
//   - Leak password material or raw secrets through results, audit events,
//     or error strings.
package authcore
