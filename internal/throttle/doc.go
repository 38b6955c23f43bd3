// Package throttle enforces a fixed-window cap on failed sign-in attempts per
// identifier and per source IP, backed by Redis counters.
//
// The limiter only counts and reports; the decision to lock an account when
// the cap is crossed belongs to the sign-in flow, which commits the lockout
// through the account store.
package throttle
