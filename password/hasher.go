package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

// ErrEmptyPassword is returned by [Hasher.Hash] when the plaintext is empty.
// An empty password is a programmer error, not a policy violation.
var ErrEmptyPassword = errors.New("password must not be empty")

// Config defines the Argon2id cost parameters for a [Hasher].
//
// Config instances are intended to be set during initialization and then
// treated as immutable.
type Config struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Hasher derives and verifies salted Argon2id password hashes.
//
// Hasher instances are safe for concurrent use; they hold no mutable state
// beyond the cost configuration.
type Hasher struct {
	config Config
}

// New validates cfg against the minimum cost floor and returns a Hasher.
func New(cfg Config) (*Hasher, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Hasher{config: cfg}, nil
}

// Hash derives a fresh hash for password and returns the hash and the salt as
// separate base64 strings.
//
// Hash fails only on an empty password or an exhausted entropy source; weak
// passwords are not rejected here: policy checks happen upstream.
func (h *Hasher) Hash(password string) (hash string, salt string, err error) {
	// Password bytes are used exactly as provided (no Unicode normalization).
	if password == "" {
		return "", "", ErrEmptyPassword
	}

	rawSalt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, rawSalt); err != nil {
		return "", "", err
	}

	rawHash := argon2.IDKey(
		[]byte(password),
		rawSalt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return base64.StdEncoding.EncodeToString(rawHash),
		base64.StdEncoding.EncodeToString(rawSalt),
		nil
}

// Verify recomputes the hash for password with the stored salt and compares
// it to the stored hash in constant time.
func (h *Hasher) Verify(password, hash, salt string) (bool, error) {
	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return false, errors.New("invalid salt encoding")
	}
	if len(rawSalt) < int(minSaltLength) {
		return false, errors.New("invalid salt length")
	}

	rawHash, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return false, errors.New("invalid hash encoding")
	}
	if len(rawHash) == 0 {
		return false, errors.New("invalid hash length")
	}

	computed := argon2.IDKey(
		[]byte(password),
		rawSalt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		uint32(len(rawHash)),
	)

	return subtle.ConstantTimeCompare(computed, rawHash) == 1, nil
}

// NeedsRehash reports whether a stored hash was produced with a shorter key
// than the configured length. Cost parameters are not recoverable from a
// detached hash, so key length is the only upgrade signal available.
func (h *Hasher) NeedsRehash(hash string) (bool, error) {
	rawHash, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return false, errors.New("invalid hash encoding")
	}
	if len(rawHash) == 0 {
		return false, errors.New("invalid hash length")
	}

	return uint32(len(rawHash)) < h.config.KeyLength, nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 16")
	}

	return nil
}
