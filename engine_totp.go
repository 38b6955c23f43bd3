package authcore

import (
	"context"
	"fmt"

	"github.com/halcyonlabs/authcore/totp"
)

// EnrollAuthenticator generates a fresh TOTP secret, persists it on the
// account with the two-factor flag set, and returns the enrollment material.
// This is the only time the manual key and QR payload are exposed; the secret
// is not recoverable afterwards, only replaceable by re-enrolling.
func (e *Engine) EnrollAuthenticator(ctx context.Context, userID string) (*totp.Setup, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.FetchByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	secret, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	label := user.Email
	if label == "" {
		label = user.Username
	}

	setup, err := e.totp.SetupEnrollment(e.config.TOTP.IssuerName, label, secret)
	if err != nil {
		return nil, fmt.Errorf("build enrollment material: %w", err)
	}

	err = e.commitUser(ctx, user, func(u *User) {
		u.AuthenticatorSecret = secret
		u.TwoFactorEnabled = true
		u.TwoFactorKind = TwoFactorAuthenticator
	})
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventTwoFactorEnrolled, true, user.ID, e.locator.CurrentIP(ctx), nil, map[string]string{"kind": string(TwoFactorAuthenticator)})

	return setup, nil
}

// EnrollSMSAuthenticator marks the account as two-factor enabled with an SMS
// second factor. No secret is stored; code delivery and verification are the
// host's responsibility.
func (e *Engine) EnrollSMSAuthenticator(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	user, err := e.users.FetchByID(ctx, userID)
	if err != nil {
		return err
	}

	if v := checkStruct(phoneInput{PhoneNumber: user.PhoneNumber}); len(v) > 0 {
		return v
	}

	err = e.commitUser(ctx, user, func(u *User) {
		u.AuthenticatorSecret = ""
		u.TwoFactorEnabled = true
		u.TwoFactorKind = TwoFactorSMS
	})
	if err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventTwoFactorEnrolled, true, user.ID, e.locator.CurrentIP(ctx), nil, map[string]string{"kind": string(TwoFactorSMS)})

	return nil
}

// RemoveTwoFactor clears the second factor: the secret, the flag, and the
// kind all reset together so no stale secret survives on a disabled account.
func (e *Engine) RemoveTwoFactor(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	user, err := e.users.FetchByID(ctx, userID)
	if err != nil {
		return err
	}

	err = e.commitUser(ctx, user, func(u *User) {
		u.AuthenticatorSecret = ""
		u.TwoFactorEnabled = false
		u.TwoFactorKind = TwoFactorNone
	})
	if err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventTwoFactorRemoved, true, user.ID, e.locator.CurrentIP(ctx), nil, nil)

	return nil
}
