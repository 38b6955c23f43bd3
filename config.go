package authcore

import (
	"errors"
	"time"
)

// Config is the full engine configuration tree. Instances are set during
// initialization and then treated as immutable.
type Config struct {
	Token           TokenConfig
	Password        PasswordConfig
	Policy          PolicyConfig
	TOTP            TOTPConfig
	ConfirmationTTL time.Duration // confirmation and reset token lifetime
	Retry           RetryConfig
	Throttle        ThrottleConfig
	Audit           AuditConfig
}

// TokenConfig defines the signing material and lifetimes for session tokens.
// Secret is mandatory; issuer/audience validation is skipped when unset.
type TokenConfig struct {
	Secret       []byte
	Issuer       string
	Audience     string
	AccessTTL    time.Duration
	RefreshBytes int
}

// PasswordConfig defines the Argon2id cost parameters for the hasher.
// UpgradeOnSignIn re-hashes a verified password whose stored hash is weaker
// than the configured parameters.
type PasswordConfig struct {
	Memory          uint32 // in KB
	Time            uint32
	Parallelism     uint8
	SaltLength      uint32
	KeyLength       uint32
	UpgradeOnSignIn bool
}

// PasswordPolicy defines the accepted password shape. Enforced upstream of
// the hasher, with all violations aggregated into one fault.
type PasswordPolicy struct {
	MinLength      int
	MaxLength      int
	RequireDigit   bool
	RequireUpper   bool
	RequireLower   bool
	RequireSpecial bool
}

// PolicyConfig holds account-level policy switches.
type PolicyConfig struct {
	Password                 PasswordPolicy
	RequireEmailConfirmation bool
}

// TOTPConfig defines authenticator code derivation parameters.
type TOTPConfig struct {
	IssuerName string
	Digits     int
	Period     int
	Skew       int
	Algorithm  string
}

// RetryConfig tunes the optimistic-concurrency commit retrier.
type RetryConfig struct {
	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
	ZeroRowsIsNoop bool
}

// ThrottleConfig enables the Redis failed-attempt throttle. AutoLockout
// commits a lockout on the account once MaxAttempts failures accumulate
// within the cooldown window; LockoutDuration zero means manual unlock only.
type ThrottleConfig struct {
	Enabled         bool
	MaxAttempts     int
	Cooldown        time.Duration
	PerIP           bool
	AutoLockout     bool
	LockoutDuration time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:    30 * time.Minute,
			RefreshBytes: 32,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: PolicyConfig{
			Password: PasswordPolicy{
				MinLength: 10,
				MaxLength: 128,
			},
		},
		TOTP: TOTPConfig{
			Digits:    6,
			Period:    30,
			Skew:      1,
			Algorithm: "SHA1",
		},
		ConfirmationTTL: 30 * time.Minute,
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseBackoff: 10 * time.Millisecond,
			MaxBackoff:  time.Second,
		},
		Throttle: ThrottleConfig{
			MaxAttempts:     5,
			Cooldown:        15 * time.Minute,
			PerIP:           true,
			LockoutDuration: 15 * time.Minute,
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

// Validate checks the configuration tree for inconsistencies that would
// produce an unsafe or non-functional engine.
func (c *Config) Validate() error {
	if len(c.Token.Secret) < 32 {
		return errors.New("token secret must be at least 32 bytes")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("token access TTL must be positive")
	}
	if c.Token.RefreshBytes < 16 {
		return errors.New("refresh token must be at least 16 random bytes")
	}
	if c.ConfirmationTTL <= 0 {
		return errors.New("confirmation TTL must be positive")
	}
	if c.Policy.Password.MinLength < 1 {
		return errors.New("password policy minimum length must be >= 1")
	}
	if c.Policy.Password.MaxLength > 0 && c.Policy.Password.MaxLength < c.Policy.Password.MinLength {
		return errors.New("password policy maximum length below minimum")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 10 {
		return errors.New("totp digits must be between 6 and 10")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("totp period must be positive")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 4 {
		return errors.New("totp skew must be between 0 and 4 steps")
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry max attempts must be >= 1")
	}
	if c.Throttle.Enabled {
		if c.Throttle.MaxAttempts < 1 {
			return errors.New("throttle max attempts must be >= 1")
		}
		if c.Throttle.Cooldown <= 0 {
			return errors.New("throttle cooldown must be positive")
		}
		if c.Throttle.AutoLockout && c.Throttle.LockoutDuration < 0 {
			return errors.New("lockout duration must not be negative")
		}
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
