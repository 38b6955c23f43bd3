package authcore

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type envConfig struct {
	TokenSecret   string        `envconfig:"AUTHCORE_TOKEN_SECRET" required:"true"`
	TokenIssuer   string        `envconfig:"AUTHCORE_TOKEN_ISSUER"`
	TokenAudience string        `envconfig:"AUTHCORE_TOKEN_AUDIENCE"`
	AccessTTL     time.Duration `envconfig:"AUTHCORE_ACCESS_TTL" default:"30m"`
	RefreshBytes  int           `envconfig:"AUTHCORE_REFRESH_BYTES" default:"32"`

	ConfirmationTTL time.Duration `envconfig:"AUTHCORE_CONFIRMATION_TTL" default:"30m"`

	RequireEmailConfirmation bool `envconfig:"AUTHCORE_REQUIRE_EMAIL_CONFIRMATION"`
	PasswordMinLength        int  `envconfig:"AUTHCORE_PASSWORD_MIN_LENGTH" default:"10"`
	PasswordMaxLength        int  `envconfig:"AUTHCORE_PASSWORD_MAX_LENGTH" default:"128"`
	PasswordRequireDigit     bool `envconfig:"AUTHCORE_PASSWORD_REQUIRE_DIGIT"`
	PasswordRequireUpper     bool `envconfig:"AUTHCORE_PASSWORD_REQUIRE_UPPER"`
	PasswordRequireLower     bool `envconfig:"AUTHCORE_PASSWORD_REQUIRE_LOWER"`
	PasswordRequireSpecial   bool `envconfig:"AUTHCORE_PASSWORD_REQUIRE_SPECIAL"`
	PasswordUpgradeOnSignIn  bool `envconfig:"AUTHCORE_PASSWORD_UPGRADE_ON_SIGNIN"`

	HashMemoryKB    uint32 `envconfig:"AUTHCORE_HASH_MEMORY_KB" default:"65536"`
	HashTime        uint32 `envconfig:"AUTHCORE_HASH_TIME" default:"2"`
	HashParallelism uint8  `envconfig:"AUTHCORE_HASH_PARALLELISM" default:"2"`

	TOTPIssuer    string `envconfig:"AUTHCORE_TOTP_ISSUER"`
	TOTPDigits    int    `envconfig:"AUTHCORE_TOTP_DIGITS" default:"6"`
	TOTPPeriod    int    `envconfig:"AUTHCORE_TOTP_PERIOD" default:"30"`
	TOTPSkew      int    `envconfig:"AUTHCORE_TOTP_SKEW" default:"1"`
	TOTPAlgorithm string `envconfig:"AUTHCORE_TOTP_ALGORITHM" default:"SHA1"`

	ThrottleEnabled     bool          `envconfig:"AUTHCORE_THROTTLE_ENABLED"`
	ThrottleMaxAttempts int           `envconfig:"AUTHCORE_THROTTLE_MAX_ATTEMPTS" default:"5"`
	ThrottleCooldown    time.Duration `envconfig:"AUTHCORE_THROTTLE_COOLDOWN" default:"15m"`
	ThrottlePerIP       bool          `envconfig:"AUTHCORE_THROTTLE_PER_IP" default:"true"`
	AutoLockout         bool          `envconfig:"AUTHCORE_AUTO_LOCKOUT"`
	LockoutDuration     time.Duration `envconfig:"AUTHCORE_LOCKOUT_DURATION" default:"15m"`

	AuditEnabled    bool `envconfig:"AUTHCORE_AUDIT_ENABLED"`
	AuditBufferSize int  `envconfig:"AUTHCORE_AUDIT_BUFFER" default:"256"`
	AuditDropIfFull bool `envconfig:"AUTHCORE_AUDIT_DROP_IF_FULL" default:"true"`
}

// ConfigFromEnv loads a Config from AUTHCORE_* environment variables, layered
// over the package defaults. AUTHCORE_TOKEN_SECRET is mandatory.
func ConfigFromEnv() (Config, error) {
	var ec envConfig
	if err := envconfig.Process("", &ec); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	cfg.Token.Secret = []byte(ec.TokenSecret)
	cfg.Token.Issuer = ec.TokenIssuer
	cfg.Token.Audience = ec.TokenAudience
	cfg.Token.AccessTTL = ec.AccessTTL
	cfg.Token.RefreshBytes = ec.RefreshBytes
	cfg.ConfirmationTTL = ec.ConfirmationTTL

	cfg.Policy.RequireEmailConfirmation = ec.RequireEmailConfirmation
	cfg.Policy.Password.MinLength = ec.PasswordMinLength
	cfg.Policy.Password.MaxLength = ec.PasswordMaxLength
	cfg.Policy.Password.RequireDigit = ec.PasswordRequireDigit
	cfg.Policy.Password.RequireUpper = ec.PasswordRequireUpper
	cfg.Policy.Password.RequireLower = ec.PasswordRequireLower
	cfg.Policy.Password.RequireSpecial = ec.PasswordRequireSpecial
	cfg.Password.UpgradeOnSignIn = ec.PasswordUpgradeOnSignIn
	cfg.Password.Memory = ec.HashMemoryKB
	cfg.Password.Time = ec.HashTime
	cfg.Password.Parallelism = ec.HashParallelism

	cfg.TOTP.IssuerName = ec.TOTPIssuer
	cfg.TOTP.Digits = ec.TOTPDigits
	cfg.TOTP.Period = ec.TOTPPeriod
	cfg.TOTP.Skew = ec.TOTPSkew
	cfg.TOTP.Algorithm = ec.TOTPAlgorithm

	cfg.Throttle.Enabled = ec.ThrottleEnabled
	cfg.Throttle.MaxAttempts = ec.ThrottleMaxAttempts
	cfg.Throttle.Cooldown = ec.ThrottleCooldown
	cfg.Throttle.PerIP = ec.ThrottlePerIP
	cfg.Throttle.AutoLockout = ec.AutoLockout
	cfg.Throttle.LockoutDuration = ec.LockoutDuration

	cfg.Audit.Enabled = ec.AuditEnabled
	cfg.Audit.BufferSize = ec.AuditBufferSize
	cfg.Audit.DropIfFull = ec.AuditDropIfFull

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
