package authcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	internalaudit "github.com/halcyonlabs/authcore/internal/audit"
	"github.com/halcyonlabs/authcore/internal/persist"
	"github.com/halcyonlabs/authcore/internal/throttle"
	"github.com/halcyonlabs/authcore/password"
	"github.com/halcyonlabs/authcore/token"
	"github.com/halcyonlabs/authcore/totp"
)

// Builder wires an [Engine] from explicit dependencies. Construction is
// allocation-only until Build; no I/O happens before the first Engine call.
type Builder struct {
	config Config
	redis  *redis.Client

	users    UserStore
	claims   ClaimStore
	activity LoginActivityStore
	roles    RoleStore
	locator  DeviceLocator

	auditSink AuditSink
	warn      func(format string, args ...any)

	built bool
}

// New returns a Builder carrying the package defaults.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the full configuration tree.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTokenSecret sets the symmetric signing secret without replacing the
// rest of the configuration.
func (b *Builder) WithTokenSecret(secret []byte) *Builder {
	b.config.Token.Secret = cloneBytes(secret)
	return b
}

// WithUserStore wires the durable account store. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithClaimStore wires the user-claim store. Required.
func (b *Builder) WithClaimStore(store ClaimStore) *Builder {
	b.claims = store
	return b
}

// WithLoginActivityStore wires the session-fingerprint store. Required.
func (b *Builder) WithLoginActivityStore(store LoginActivityStore) *Builder {
	b.activity = store
	return b
}

// WithRoleStore wires the read-only role store. Optional.
func (b *Builder) WithRoleStore(store RoleStore) *Builder {
	b.roles = store
	return b
}

// WithDeviceLocator wires the device/geo collaborator. When omitted, a
// context-based fallback locator is used.
func (b *Builder) WithDeviceLocator(locator DeviceLocator) *Builder {
	b.locator = locator
	return b
}

// WithRedis wires the Redis client backing the failed-attempt throttle.
// Required only when Config.Throttle.Enabled is set.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithAuditSink wires the sink receiving audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithWarnFunc replaces the operational warning hook (default: log.Printf).
func (b *Builder) WithWarnFunc(warn func(format string, args ...any)) *Builder {
	b.warn = warn
	return b
}

// Build validates the wiring and constructs the Engine. A Builder can build
// at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.claims == nil {
		return nil, errors.New("claim store required")
	}
	if b.activity == nil {
		return nil, errors.New("login activity store required")
	}
	if cfg.Throttle.Enabled && b.redis == nil {
		return nil, errors.New("throttle requires redis client")
	}

	hasher, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	issuer, err := token.New(token.Config{
		Secret:    cfg.Token.Secret,
		Issuer:    cfg.Token.Issuer,
		Audience:  cfg.Token.Audience,
		AccessTTL: cfg.Token.AccessTTL,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		users:    b.users,
		claims:   b.claims,
		activity: b.activity,
		roles:    b.roles,
		locator:  b.locator,
		hasher:   hasher,
		issuer:   issuer,
		totp: totp.New(totp.Config{
			Issuer:    cfg.TOTP.IssuerName,
			Digits:    cfg.TOTP.Digits,
			Period:    cfg.TOTP.Period,
			Skew:      cfg.TOTP.Skew,
			Algorithm: cfg.TOTP.Algorithm,
		}),
		userRetrier: persist.New(persist.Config{
			Entity:         "user",
			MaxAttempts:    cfg.Retry.MaxAttempts,
			BaseBackoff:    cfg.Retry.BaseBackoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
			ZeroRowsIsNoop: cfg.Retry.ZeroRowsIsNoop,
		}),
		activityRetrier: persist.New(persist.Config{
			Entity:         "login_activity",
			MaxAttempts:    cfg.Retry.MaxAttempts,
			BaseBackoff:    cfg.Retry.BaseBackoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
			ZeroRowsIsNoop: cfg.Retry.ZeroRowsIsNoop,
		}),
		warn: b.warn,
		now:  time.Now,
	}

	if engine.locator == nil {
		engine.locator = contextLocator{}
	}

	if cfg.Throttle.Enabled {
		engine.throttle = throttle.New(b.redis, throttle.Config{
			MaxAttempts: cfg.Throttle.MaxAttempts,
			Cooldown:    cfg.Throttle.Cooldown,
			PerIP:       cfg.Throttle.PerIP,
		})
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
