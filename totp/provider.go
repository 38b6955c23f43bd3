package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const secretBytes = 20

var (
	// ErrEmptySecret is returned when a code is generated or verified against
	// an empty shared secret.
	ErrEmptySecret = errors.New("empty totp secret")
	// ErrInvalidSecret is returned when the shared secret is not valid base32.
	ErrInvalidSecret = errors.New("invalid totp secret encoding")
)

// Config defines the code derivation parameters for a [Provider].
type Config struct {
	Issuer    string
	Digits    int
	Period    int    // seconds per time step
	Skew      int    // accepted steps either side of now
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
}

// Setup is the enrollment material handed back to the caller exactly once.
// The manual key is the base32 secret for hand entry; the QR payload is the
// otpauth:// URI an authenticator app can scan.
type Setup struct {
	ManualKey string
	QRPayload string
}

// Provider generates and verifies time-based one-time codes. It is pure given
// its inputs plus the entropy source used for secret generation, and safe for
// concurrent use.
type Provider struct {
	config Config
}

// New returns a Provider with cfg normalized to RFC 6238 conventional
// defaults: 6 digits, 30-second step, SHA1, ±1 step skew.
func New(cfg Config) *Provider {
	if cfg.Digits <= 0 {
		cfg.Digits = 6
	}
	if cfg.Period <= 0 {
		cfg.Period = 30
	}
	if cfg.Skew < 0 {
		cfg.Skew = 0
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	return &Provider{config: cfg}
}

// GenerateSecret returns a fresh random shared secret, base32-encoded without
// padding.
func (p *Provider) GenerateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// GenerateCode derives the code for secret at the time step containing at.
func (p *Provider) GenerateCode(secret string, at time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}

	counter := at.Unix() / int64(p.config.Period)
	return hotpCode(key, counter, p.config.Digits, p.config.Algorithm)
}

// VerifyCode checks code against secret at the current time step, accepting
// the configured skew window either side. Codes from the wrong secret or
// outside the window are rejected; comparison is constant-time.
func (p *Provider) VerifyCode(code, secret string) (bool, error) {
	return p.VerifyCodeAt(code, secret, time.Now())
}

// VerifyCodeAt is VerifyCode evaluated at an explicit reference time.
func (p *Provider) VerifyCodeAt(code, secret string, at time.Time) (bool, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != p.config.Digits || !isNumeric(trimmed) {
		return false, nil
	}

	key, err := decodeSecret(secret)
	if err != nil {
		return false, err
	}

	baseCounter := at.Unix() / int64(p.config.Period)
	for step := -p.config.Skew; step <= p.config.Skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := hotpCode(key, counter, p.config.Digits, p.config.Algorithm)
		if err != nil {
			return false, err
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, nil
		}
	}

	return false, nil
}

// SetupEnrollment formats secret into the enrollment material for the given
// issuer and account label. It does not mutate any persisted state: the
// caller is responsible for storing the secret on the account.
func (p *Provider) SetupEnrollment(issuer, accountLabel, secret string) (*Setup, error) {
	if _, err := decodeSecret(secret); err != nil {
		return nil, err
	}
	if issuer == "" {
		issuer = p.config.Issuer
	}

	label := url.PathEscape(issuer + ":" + accountLabel)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(p.config.Period))
	v.Set("digits", strconv.Itoa(p.config.Digits))
	v.Set("algorithm", strings.ToUpper(p.config.Algorithm))

	return &Setup{
		ManualKey: secret,
		QRPayload: "otpauth://totp/" + label + "?" + v.Encode(),
	}, nil
}

func decodeSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(strings.TrimSpace(secret)))
	if err != nil {
		return nil, ErrInvalidSecret
	}
	return key, nil
}

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, errors.New("unsupported totp algorithm")
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
