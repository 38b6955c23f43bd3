// Package password implements salted password hashing and verification with
// Argon2id defaults.
//
// # Output format
//
// Unlike PHC-style encoders, [Hasher.Hash] returns the hash and the salt as two
// separate base64 strings so the caller can persist them in distinct columns.
// The Argon2id parameters are fixed by the [Config] the Hasher was built with;
// [Hasher.NeedsRehash] reports whether a stored hash is shorter than the
// configured key length so the caller can re-hash on the next successful
// verification.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length,
// character classes) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords: callers supply plaintext and receive hashes.
//   - Import any other authcore package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
