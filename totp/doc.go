// Package totp implements RFC 6238 time-based one-time passwords over base32
// shared secrets, plus enrollment material (manual key and otpauth:// URI) for
// authenticator apps.
//
// # Clock skew
//
// Verification accepts codes from adjacent time steps within the configured
// skew window. The default window is ±1 step (30 seconds either side), which
// tolerates ordinary device clock drift without widening the guessing surface
// meaningfully.
//
// # What this package must NOT do
//
//   - Persist secrets: the caller stores the secret on the account record.
//   - Rate-limit verification attempts: that is the Engine's concern.
package totp
