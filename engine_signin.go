package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/halcyonlabs/authcore/internal/persist"
	"github.com/halcyonlabs/authcore/internal/throttle"
)

// SignIn runs one full authentication attempt for the identifier (email or
// username) and password.
//
// The checks run in a fixed order: credential verification always precedes
// the lockout check, which precedes the two-factor check, which precedes
// token issuance and activity recording. An unknown identifier and a wrong
// password both report [SignInFailed], so callers cannot probe for account
// existence. Every outcome other than [SignInSuccess] leaves login activity
// untouched.
//
// An account that fails the email-confirmation policy is reported through
// [ErrEmailNotConfirmed] rather than a status, since the caller must be able
// to tell a fixable precondition apart from bad credentials.
func (e *Engine) SignIn(ctx context.Context, identifier, plainPassword string) (*SignInResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	if identifier == "" || plainPassword == "" {
		return &SignInResult{Status: SignInFailed}, nil
	}

	ip := e.locator.CurrentIP(ctx)

	if err := e.checkThrottle(ctx, identifier, ip); err != nil {
		return nil, err
	}

	user, err := e.lookupUser(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Unknown identifiers spend the same throttle budget as wrong
			// passwords, so the counter cannot reveal which accounts exist.
			if rerr := e.recordFailure(ctx, identifier, ip, nil); rerr != nil {
				return nil, rerr
			}
			e.emitAudit(ctx, auditEventSignInFailure, false, "", ip, nil, map[string]string{"reason": "unknown_identifier"})
			return &SignInResult{Status: SignInFailed}, nil
		}
		return nil, err
	}

	ok, err := e.hasher.Verify(plainPassword, user.PasswordHash, user.Salt)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		if err := e.recordFailure(ctx, identifier, ip, user); err != nil {
			return nil, err
		}
		e.emitAudit(ctx, auditEventSignInFailure, false, user.ID, ip, nil, map[string]string{"reason": "wrong_password"})
		return &SignInResult{Status: SignInFailed}, nil
	}

	if e.config.Policy.RequireEmailConfirmation && !user.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}

	if e.isLockedOut(user) {
		e.emitAudit(ctx, auditEventSignInLockedOut, false, user.ID, ip, nil, nil)
		return &SignInResult{Status: SignInLockedOut}, nil
	}

	if user.TwoFactorEnabled {
		e.emitAudit(ctx, auditEventSignInTwoFactor, false, user.ID, ip, nil, nil)
		return &SignInResult{Status: SignInRequireTwoFactor, TwoFactorKind: user.TwoFactorKind}, nil
	}

	return e.establishSession(ctx, user, identifier, plainPassword, ip)
}

// SignInWithTOTP completes a two-factor sign-in in one call: credentials are
// verified again from scratch, then the one-time code is checked against the
// account's authenticator secret. No server-side challenge state is kept
// between the first-factor and second-factor calls.
//
// Only authenticator enrollment is completed here. For SMS enrollment the
// host delivers and verifies the code itself, so an account with an SMS
// second factor returns [ErrTwoFactorNotEnrolled] from this method.
func (e *Engine) SignInWithTOTP(ctx context.Context, identifier, plainPassword, code string) (*SignInResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	if identifier == "" || plainPassword == "" {
		return &SignInResult{Status: SignInFailed}, nil
	}

	ip := e.locator.CurrentIP(ctx)

	if err := e.checkThrottle(ctx, identifier, ip); err != nil {
		return nil, err
	}

	user, err := e.lookupUser(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if rerr := e.recordFailure(ctx, identifier, ip, nil); rerr != nil {
				return nil, rerr
			}
			e.emitAudit(ctx, auditEventSignInFailure, false, "", ip, nil, map[string]string{"reason": "unknown_identifier"})
			return &SignInResult{Status: SignInFailed}, nil
		}
		return nil, err
	}

	ok, err := e.hasher.Verify(plainPassword, user.PasswordHash, user.Salt)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		if err := e.recordFailure(ctx, identifier, ip, user); err != nil {
			return nil, err
		}
		e.emitAudit(ctx, auditEventSignInFailure, false, user.ID, ip, nil, map[string]string{"reason": "wrong_password"})
		return &SignInResult{Status: SignInFailed}, nil
	}

	if e.config.Policy.RequireEmailConfirmation && !user.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}

	if e.isLockedOut(user) {
		e.emitAudit(ctx, auditEventSignInLockedOut, false, user.ID, ip, nil, nil)
		return &SignInResult{Status: SignInLockedOut}, nil
	}

	if !user.TwoFactorEnabled || user.TwoFactorKind != TwoFactorAuthenticator || user.AuthenticatorSecret == "" {
		return nil, ErrTwoFactorNotEnrolled
	}

	valid, err := e.totp.VerifyCodeAt(code, user.AuthenticatorSecret, e.now())
	if err != nil {
		return nil, fmt.Errorf("verify totp code: %w", err)
	}
	if !valid {
		if err := e.recordFailure(ctx, identifier, ip, user); err != nil {
			return nil, err
		}
		e.emitAudit(ctx, auditEventSignInFailure, false, user.ID, ip, ErrTwoFactorCodeInvalid, nil)
		return nil, ErrTwoFactorCodeInvalid
	}

	return e.establishSession(ctx, user, identifier, plainPassword, ip)
}

// VerifyTwoFactorCode checks a one-time code against the account's enrolled
// authenticator secret without establishing a session.
func (e *Engine) VerifyTwoFactorCode(ctx context.Context, userID, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	user, err := e.users.FetchByID(ctx, userID)
	if err != nil {
		return err
	}

	if !user.TwoFactorEnabled || user.AuthenticatorSecret == "" {
		return ErrTwoFactorNotEnrolled
	}

	valid, err := e.totp.VerifyCodeAt(code, user.AuthenticatorSecret, e.now())
	if err != nil {
		return fmt.Errorf("verify totp code: %w", err)
	}
	if !valid {
		return ErrTwoFactorCodeInvalid
	}

	return nil
}

// FailedAttempts reports the throttle's running failed-attempt count for an
// identifier. Zero when throttling is disabled.
func (e *Engine) FailedAttempts(ctx context.Context, identifier string) (int, error) {
	if e == nil || e.throttle == nil {
		return 0, nil
	}

	count, err := e.throttle.Attempts(ctx, identifier)
	if err != nil {
		return 0, translateThrottleErr(err)
	}
	return count, nil
}

func (e *Engine) lookupUser(ctx context.Context, identifier string) (*User, error) {
	if looksLikeEmail(identifier) {
		return e.users.FetchByEmail(ctx, identifier)
	}
	return e.users.FetchByUsername(ctx, identifier)
}

// isLockedOut treats an expired lockout window as inactive without mutating
// the record; failure branches stay side-effect-free.
func (e *Engine) isLockedOut(user *User) bool {
	if !user.LockoutEnabled {
		return false
	}
	if user.LockoutEnd.IsZero() {
		return true
	}
	return e.now().Before(user.LockoutEnd)
}

func (e *Engine) checkThrottle(ctx context.Context, identifier, ip string) error {
	if e.throttle == nil {
		return nil
	}

	if err := e.throttle.Check(ctx, identifier, ip); err != nil {
		if errors.Is(err, throttle.ErrThrottled) {
			e.emitAudit(ctx, auditEventSignInThrottled, false, "", ip, nil, nil)
		}
		return translateThrottleErr(err)
	}

	return nil
}

// recordFailure counts one failed attempt and, when auto-lockout is on,
// commits a lockout once the budget is exhausted. user may be nil when the
// identifier matched no account.
func (e *Engine) recordFailure(ctx context.Context, identifier, ip string, user *User) error {
	if e.throttle == nil {
		return nil
	}

	count, err := e.throttle.RecordFailure(ctx, identifier, ip)
	if err != nil {
		return translateThrottleErr(err)
	}

	if !e.config.Throttle.AutoLockout || user == nil {
		return nil
	}
	if count < int64(e.config.Throttle.MaxAttempts) {
		return nil
	}
	if e.isLockedOut(user) {
		return nil
	}

	lockoutEnd := e.now().Add(e.config.Throttle.LockoutDuration)
	if e.config.Throttle.LockoutDuration <= 0 {
		lockoutEnd = e.now().Add(e.config.Throttle.Cooldown)
	}

	err = e.commitUser(ctx, user, func(u *User) {
		u.LockoutEnabled = true
		u.LockoutEnd = lockoutEnd
	})
	if err != nil {
		e.warnf("authcore: auto-lockout commit for user %s failed: %v", user.ID, err)
		return nil
	}

	e.emitAudit(ctx, auditEventAutoLockout, true, user.ID, ip, nil, nil)

	return nil
}

// establishSession is the terminal success path: claims are gathered, the
// token pair is minted, then login activity is committed through the retrier.
// Activity comes last so an issuance failure leaves no activity behind.
func (e *Engine) establishSession(ctx context.Context, user *User, identifier, plainPassword, ip string) (*SignInResult, error) {
	e.maybeUpgradeHash(ctx, user, plainPassword)

	tokenClaims, err := e.assembleClaims(ctx, user)
	if err != nil {
		return nil, err
	}

	access, expiresAt, err := e.issuer.IssueAccess(tokenClaims, e.config.Token.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := e.issuer.IssueOpaque(e.config.Token.RefreshBytes)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	activity, err := e.recordActivity(ctx, user, ip)
	if err != nil {
		return nil, err
	}

	if e.throttle != nil {
		if err := e.throttle.Reset(ctx, identifier, ip); err != nil {
			e.warnf("authcore: throttle reset for %s failed: %v", identifier, err)
		}
	}

	e.emitAudit(ctx, auditEventSignInSuccess, true, user.ID, ip, nil, nil)

	return &SignInResult{
		Status: SignInSuccess,
		Token: &SessionToken{
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresAt:    expiresAt,
		},
		Activity: activity,
	}, nil
}

// maybeUpgradeHash re-hashes a just-verified password when the stored hash
// predates the configured key length. Best effort: a failed upgrade never
// fails the sign-in.
func (e *Engine) maybeUpgradeHash(ctx context.Context, user *User, plainPassword string) {
	if !e.config.Password.UpgradeOnSignIn {
		return
	}

	needs, err := e.hasher.NeedsRehash(user.PasswordHash)
	if err != nil || !needs {
		return
	}

	hash, salt, err := e.hasher.Hash(plainPassword)
	if err != nil {
		e.warnf("authcore: password upgrade hash for user %s failed: %v", user.ID, err)
		return
	}

	err = e.commitUser(ctx, user, func(u *User) {
		u.PasswordHash = hash
		u.Salt = salt
	})
	if err != nil {
		e.warnf("authcore: password upgrade commit for user %s failed: %v", user.ID, err)
	}
}

// reservedClaimTypes are claim names the engine writes itself when minting a
// token. Stored user claims must never shadow them: a claim row typed "sub"
// or "email" would otherwise forge the token's identity.
var reservedClaimTypes = map[string]struct{}{
	"sub":   {},
	"email": {},
	"exp":   {},
	"iat":   {},
	"nbf":   {},
	"iss":   {},
	"aud":   {},
}

func isReservedClaimType(name string) bool {
	_, ok := reservedClaimTypes[name]
	return ok
}

func (e *Engine) assembleClaims(ctx context.Context, user *User) (map[string]any, error) {
	out := map[string]any{}

	stored, err := e.claims.FetchByUser(ctx, user.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("fetch claims: %w", err)
	}
	for _, claim := range stored {
		if isReservedClaimType(claim.Type) {
			continue
		}
		out[claim.Type] = claim.Value
	}

	// Identity claims are written after the stored set so nothing in the
	// claim store can override them.
	out["sub"] = user.ID
	out["email"] = user.Email

	if e.roles != nil && user.RoleID != "" {
		role, err := e.roles.FetchByID(ctx, user.RoleID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrRoleNotFound
			}
			return nil, fmt.Errorf("fetch role: %w", err)
		}
		out["role"] = role.Name
	}

	return out, nil
}

// recordActivity creates or refreshes the (user, IP) session fingerprint
// through the activity retrier.
func (e *Engine) recordActivity(ctx context.Context, user *User, ip string) (*LoginActivity, error) {
	device := e.locator.CurrentDevice(ctx)
	city, country := e.locator.LocationForIP(ctx, ip)
	now := e.now()

	existing, err := e.activity.FetchByUserAndIP(ctx, user.ID, ip)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("fetch login activity: %w", err)
	}

	if existing == nil {
		created := &LoginActivity{
			ID:             uuid.NewString(),
			Device:         device,
			IP:             ip,
			City:           city,
			Country:        country,
			LastSignedInAt: now,
			UserID:         user.ID,
		}
		op := persist.Op{
			Apply: func(ctx context.Context) (int64, error) {
				return e.activity.Create(ctx, created)
			},
		}
		if err := e.activityRetrier.Commit(ctx, op); err != nil {
			return nil, fmt.Errorf("create login activity: %w", err)
		}
		return created, nil
	}

	existing.Device = device
	existing.City = city
	existing.Country = country
	existing.LastSignedInAt = now

	op := persist.Op{
		Apply: func(ctx context.Context) (int64, error) {
			return e.activity.Update(ctx, existing)
		},
		Rebase: func(current any) error {
			cur, ok := current.(*LoginActivity)
			if !ok || cur == nil {
				return ErrNotFound
			}
			id := existing.ID
			*existing = *cur
			existing.ID = id
			existing.Device = device
			existing.City = city
			existing.Country = country
			existing.LastSignedInAt = now
			return nil
		},
	}
	if err := e.activityRetrier.Commit(ctx, op); err != nil {
		return nil, fmt.Errorf("update login activity: %w", err)
	}

	return existing, nil
}

func translateThrottleErr(err error) error {
	switch {
	case errors.Is(err, throttle.ErrThrottled):
		return ErrSignInThrottled
	case errors.Is(err, throttle.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrThrottleUnavailable, err)
	default:
		return err
	}
}

func looksLikeEmail(identifier string) bool {
	for _, r := range identifier {
		if r == '@' {
			return true
		}
	}
	return false
}
