package authcore

import (
	"context"
	"time"
)

// TwoFactorKind identifies the second-factor mechanism enrolled on an account.
type TwoFactorKind string

const (
	// TwoFactorNone means no second factor is enrolled.
	TwoFactorNone TwoFactorKind = ""
	// TwoFactorAuthenticator means a TOTP authenticator app holds the shared
	// secret stored on the account.
	TwoFactorAuthenticator TwoFactorKind = "authenticator"
	// TwoFactorSMS means the second factor is delivered out of band by the
	// host; the engine stores no secret for it.
	TwoFactorSMS TwoFactorKind = "sms"
)

// User is the account record the engine reads and mutates through the host's
// [UserStore]. A commit either fully succeeds or is retried and reported
// failed; the engine never leaves a partially persisted user behind.
//
// Version is the optimistic-concurrency counter the store compares on update.
type User struct {
	ID                  string
	Email               string
	Username            string
	FirstName           string
	LastName            string
	PhoneNumber         string
	PasswordHash        string
	Salt                string
	EmailConfirmed      bool
	PhoneConfirmed      bool
	LockoutEnabled      bool
	LockoutEnd          time.Time
	TwoFactorEnabled    bool
	TwoFactorKind       TwoFactorKind
	AuthenticatorSecret string
	RoleID              string
	Version             uint32
}

// Role is read-only from the engine's perspective.
type Role struct {
	ID   string
	Name string
	Kind string
}

// UserClaim is a typed key/value fact about a user, embedded into access
// tokens on sign-in. Uniqueness per (user, type) is left to the store; the
// engine may create duplicate pairs if the store allows them.
type UserClaim struct {
	ID     string
	Type   string
	Value  string
	UserID string
}

// LoginActivity records one session fingerprint per (user, IP): created on
// the first successful sign-in from an address, refreshed thereafter.
type LoginActivity struct {
	ID             string
	Device         string
	IP             string
	City           string
	Country        string
	LastSignedInAt time.Time
	UserID         string
}

// SessionToken is the token pair minted on successful sign-in. Transient;
// never persisted by the engine.
type SessionToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// SignInStatus is the terminal state of one sign-in attempt.
type SignInStatus uint8

const (
	// SignInFailed covers unknown identifier and wrong password uniformly, so
	// a caller cannot probe for account existence.
	SignInFailed SignInStatus = iota
	// SignInLockedOut is reported only after the password verified correctly.
	SignInLockedOut
	// SignInRequireTwoFactor means credentials verified but no session was
	// established; no tokens are issued and no activity is recorded.
	SignInRequireTwoFactor
	// SignInSuccess carries the token pair and the activity snapshot.
	SignInSuccess
)

func (s SignInStatus) String() string {
	switch s {
	case SignInFailed:
		return "failed"
	case SignInLockedOut:
		return "locked_out"
	case SignInRequireTwoFactor:
		return "require_two_factor"
	case SignInSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// SignInResult is the outcome of [Engine.SignIn]. Token and Activity are
// populated only for SignInSuccess; TwoFactorKind only for
// SignInRequireTwoFactor.
type SignInResult struct {
	Status        SignInStatus
	Token         *SessionToken
	Activity      *LoginActivity
	TwoFactorKind TwoFactorKind
}

// UserStore is the durable account store the host must implement. Fetch
// methods return [ErrNotFound] when no record matches. Update returns the
// number of affected records and may return a *persist.ConflictError when an
// optimistic-concurrency race was lost.
type UserStore interface {
	FetchByEmail(ctx context.Context, email string) (*User, error)
	FetchByUsername(ctx context.Context, username string) (*User, error)
	FetchByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// ClaimStore fetches and creates user claims.
type ClaimStore interface {
	FetchByUser(ctx context.Context, userID string) ([]UserClaim, error)
	Create(ctx context.Context, claims []UserClaim) error
}

// LoginActivityStore persists session fingerprints. FetchByUserAndIP returns
// [ErrNotFound] for a first sign-in from an address.
type LoginActivityStore interface {
	FetchByUserAndIP(ctx context.Context, userID, ip string) (*LoginActivity, error)
	Create(ctx context.Context, activity *LoginActivity) (int64, error)
	Update(ctx context.Context, activity *LoginActivity) (int64, error)
}

// RoleStore resolves role references. Read-only.
type RoleStore interface {
	FetchByID(ctx context.Context, id string) (*Role, error)
}

// DeviceLocator supplies best-effort device and network facts for the
// current caller. Implementations may return empty strings without failing
// the sign-in.
type DeviceLocator interface {
	CurrentDevice(ctx context.Context) string
	CurrentIP(ctx context.Context) string
	LocationForIP(ctx context.Context, ip string) (city, country string)
}
