// Package token issues and validates the two token kinds the engine deals in:
// signed, claim-bearing access tokens (JWT, HMAC-SHA256) and opaque random
// refresh tokens with no decodable structure.
//
// # Validation contract
//
// A token that fails signature verification, is expired, or carries a
// mismatched issuer or audience is rejected uniformly: [Issuer.Validate]
// returns false and [Issuer.ReadClaims] fails the whole call. A token is never
// partially trusted.
//
// # What this package must NOT do
//
//   - Persist tokens: access tokens are self-contained and refresh tokens are
//     handed to the host for storage.
//   - Import any other authcore package.
package token
