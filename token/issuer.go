package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultOpaqueBytes = 32
	minSecretBytes     = 32
)

var (
	// ErrTokenInvalid is returned for any structural, cryptographic, or
	// temporal failure while decoding a token. Callers must not be able to
	// distinguish why a token was rejected.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrClaimMissing is returned by [Issuer.ReadClaims] when a requested
	// claim is absent from an otherwise valid token.
	ErrClaimMissing = errors.New("requested claim missing")
)

// Config defines the signing material and validation scope for an [Issuer].
//
// Secret is mandatory. Issuer and Audience validation are skipped when unset.
type Config struct {
	Secret    []byte
	Issuer    string
	Audience  string
	AccessTTL time.Duration
}

// Issuer mints and validates signed access tokens and opaque refresh tokens.
// It holds no mutable state and is safe for concurrent use.
type Issuer struct {
	config Config
	now    func() time.Time
}

// New validates cfg and returns an Issuer. The symmetric secret is configured
// once at startup and never rotated by this package.
func New(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid access TTL configuration")
	}

	return &Issuer{config: cfg, now: time.Now}, nil
}

// IssueAccess builds a signed token carrying claims plus the registered
// exp/iat/iss/aud set, valid for ttl (the configured AccessTTL when ttl <= 0).
// Registered claim names in the input map are ignored rather than trusted.
func (i *Issuer) IssueAccess(claims map[string]any, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = i.config.AccessTTL
	}

	now := i.now()
	expiresAt := now.Add(ttl)

	mc := jwt.MapClaims{}
	for name, value := range claims {
		switch name {
		case "exp", "iat", "nbf", "iss", "aud":
			continue
		}
		mc[name] = value
	}
	mc["exp"] = jwt.NewNumericDate(expiresAt)
	mc["iat"] = jwt.NewNumericDate(now)
	if i.config.Issuer != "" {
		mc["iss"] = i.config.Issuer
	}
	if i.config.Audience != "" {
		mc["aud"] = i.config.Audience
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(i.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// IssueOpaque returns byteLength cryptographically random bytes encoded as a
// base64url string. Used as a refresh token with no embedded claims.
func (i *Issuer) IssueOpaque(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = defaultOpaqueBytes
	}

	raw := make([]byte, byteLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Validate reports whether tokenStr carries a valid signature, an unexpired
// claim set, and the configured issuer/audience. It never returns an error:
// any failure is false.
func (i *Issuer) Validate(tokenStr string) bool {
	_, err := i.parse(tokenStr)
	return err == nil
}

// ReadClaims decodes and verifies tokenStr, then extracts the requested claim
// names. The whole call fails when signature or expiry checks fail, or when
// any requested claim is absent. With no names, all claims are returned.
func (i *Issuer) ReadClaims(tokenStr string, claimNames ...string) (map[string]any, error) {
	claims, err := i.parse(tokenStr)
	if err != nil {
		return nil, err
	}

	if len(claimNames) == 0 {
		out := make(map[string]any, len(claims))
		for name, value := range claims {
			out[name] = value
		}
		return out, nil
	}

	out := make(map[string]any, len(claimNames))
	for _, name := range claimNames {
		value, ok := claims[name]
		if !ok {
			return nil, ErrClaimMissing
		}
		out[name] = value
	}

	return out, nil
}

func (i *Issuer) parse(tokenStr string) (jwt.MapClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}
	if i.config.Audience != "" {
		options = append(options, jwt.WithAudience(i.config.Audience))
	}

	parsed, err := jwt.NewParser(options...).Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return i.config.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
