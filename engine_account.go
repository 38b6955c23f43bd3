package authcore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Register validates the new account's identity fields and password against
// policy, hashes the password, and creates the record through the user store.
// All validation violations are aggregated into one error before any store
// interaction.
func (e *Engine) Register(ctx context.Context, user *User, plainPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if user == nil {
		return ErrNotFound
	}

	var violations Violations
	violations = append(violations, checkStruct(emailInput{Email: user.Email})...)
	violations = append(violations, checkStruct(usernameInput{Username: user.Username})...)
	violations = append(violations, checkPassword(e.config.Policy.Password, plainPassword)...)
	if len(violations) > 0 {
		return violations
	}

	hash, salt, err := e.hasher.Hash(plainPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.PasswordHash = hash
	user.Salt = salt

	if err := e.users.Create(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	e.emitAudit(ctx, auditEventAccountUpdated, true, user.ID, e.locator.CurrentIP(ctx), nil, map[string]string{"field": "created"})

	return nil
}

// SetEmail updates the account's email address and clears the confirmed flag,
// since the new address has not been verified.
func (e *Engine) SetEmail(ctx context.Context, userID, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if v := checkStruct(emailInput{Email: email}); len(v) > 0 {
		return v
	}

	return e.mutateAccount(ctx, userID, "email", func(u *User) {
		u.Email = email
		u.EmailConfirmed = false
	})
}

// SetUsername updates the account's username.
func (e *Engine) SetUsername(ctx context.Context, userID, username string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if v := checkStruct(usernameInput{Username: username}); len(v) > 0 {
		return v
	}

	return e.mutateAccount(ctx, userID, "username", func(u *User) {
		u.Username = username
	})
}

// SetName updates the account's first and last name together.
func (e *Engine) SetName(ctx context.Context, userID, firstName, lastName string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if v := checkStruct(nameInput{FirstName: firstName, LastName: lastName}); len(v) > 0 {
		return v
	}

	return e.mutateAccount(ctx, userID, "name", func(u *User) {
		u.FirstName = firstName
		u.LastName = lastName
	})
}

// SetPhoneNumber updates the account's phone number (E.164) and clears the
// phone-confirmed flag.
func (e *Engine) SetPhoneNumber(ctx context.Context, userID, phoneNumber string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if v := checkStruct(phoneInput{PhoneNumber: phoneNumber}); len(v) > 0 {
		return v
	}

	return e.mutateAccount(ctx, userID, "phone_number", func(u *User) {
		u.PhoneNumber = phoneNumber
		u.PhoneConfirmed = false
	})
}

// ChangePassword verifies the current password, checks the replacement
// against policy, and commits a fresh hash and salt.
func (e *Engine) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if v := checkPassword(e.config.Policy.Password, newPassword); len(v) > 0 {
		return v
	}

	user, err := e.users.FetchByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := e.hasher.Verify(currentPassword, user.PasswordHash, user.Salt)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return Violations{{Field: "current_password", Code: "mismatch", Message: "current password does not match"}}
	}

	hash, salt, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = e.commitUser(ctx, user, func(u *User) {
		u.PasswordHash = hash
		u.Salt = salt
	})
	if err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventPasswordReset, true, user.ID, e.locator.CurrentIP(ctx), nil, map[string]string{"via": "change_password"})

	return nil
}

// EnableLockout blocks sign-in for the account until now+duration. A zero
// duration locks the account until an explicit [Engine.Unlock].
func (e *Engine) EnableLockout(ctx context.Context, userID string, duration time.Duration) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	user, err := e.users.FetchByID(ctx, userID)
	if err != nil {
		return err
	}

	var end time.Time
	if duration > 0 {
		end = e.now().Add(duration)
	}

	err = e.commitUser(ctx, user, func(u *User) {
		u.LockoutEnabled = true
		u.LockoutEnd = end
	})
	if err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventLockoutEnabled, true, user.ID, e.locator.CurrentIP(ctx), nil, nil)

	return nil
}

// Unlock clears the lockout flag and expiration.
func (e *Engine) Unlock(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	user, err := e.users.FetchByID(ctx, userID)
	if err != nil {
		return err
	}

	err = e.commitUser(ctx, user, func(u *User) {
		u.LockoutEnabled = false
		u.LockoutEnd = time.Time{}
	})
	if err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventUnlocked, true, user.ID, e.locator.CurrentIP(ctx), nil, nil)

	return nil
}

// ConfirmEmail flips the email-confirmed flag after verifying that tokenStr
// is valid and was issued for this exact account. A token minted for a
// different user fails with [ErrTokenSubjectMismatch] and mutates nothing.
func (e *Engine) ConfirmEmail(ctx context.Context, userID, tokenStr string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if err := e.assertTokenSubject(tokenStr, userID); err != nil {
		return err
	}

	user, err := e.users.FetchByID(ctx, userID)
	if err != nil {
		return err
	}

	err = e.commitUser(ctx, user, func(u *User) {
		u.EmailConfirmed = true
	})
	if err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventEmailConfirmed, true, user.ID, e.locator.CurrentIP(ctx), nil, nil)

	return nil
}

// ConfirmPhoneNumber flips the phone-confirmed flag after the same subject
// check as [Engine.ConfirmEmail].
func (e *Engine) ConfirmPhoneNumber(ctx context.Context, userID, tokenStr string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if err := e.assertTokenSubject(tokenStr, userID); err != nil {
		return err
	}

	user, err := e.users.FetchByID(ctx, userID)
	if err != nil {
		return err
	}

	err = e.commitUser(ctx, user, func(u *User) {
		u.PhoneConfirmed = true
	})
	if err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventPhoneConfirmed, true, user.ID, e.locator.CurrentIP(ctx), nil, nil)

	return nil
}

// ResetPassword consumes a reset token: the embedded email claim selects the
// account, the new password is checked against policy, re-hashed, and
// committed. An invalid or expired token fails with [ErrTokenInvalid] before
// any store interaction.
func (e *Engine) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	claims, err := e.issuer.ReadClaims(tokenStr, "email")
	if err != nil {
		return ErrTokenInvalid
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return ErrTokenInvalid
	}

	if v := checkPassword(e.config.Policy.Password, newPassword); len(v) > 0 {
		return v
	}

	user, err := e.users.FetchByEmail(ctx, email)
	if err != nil {
		return err
	}

	hash, salt, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = e.commitUser(ctx, user, func(u *User) {
		u.PasswordHash = hash
		u.Salt = salt
	})
	if err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventPasswordReset, true, user.ID, e.locator.CurrentIP(ctx), nil, map[string]string{"via": "reset_token"})

	return nil
}

// GenerateConfirmationToken mints the short-lived token consumed by
// [Engine.ConfirmEmail] and [Engine.ConfirmPhoneNumber]. The token embeds
// the user id and email; lifetime comes from Config.ConfirmationTTL.
func (e *Engine) GenerateConfirmationToken(ctx context.Context, userID string) (string, error) {
	return e.generateAccountToken(ctx, userID)
}

// GenerateResetToken mints the short-lived token consumed by
// [Engine.ResetPassword]. Identical to a confirmation token at the token
// level; the flows differ only in which operation consumes them.
func (e *Engine) GenerateResetToken(ctx context.Context, userID string) (string, error) {
	return e.generateAccountToken(ctx, userID)
}

// DeleteAccount removes the account record. A delete that matches no record
// reports [ErrNotFound].
func (e *Engine) DeleteAccount(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	rows, err := e.users.Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	e.emitAudit(ctx, auditEventAccountUpdated, true, userID, e.locator.CurrentIP(ctx), nil, map[string]string{"field": "deleted"})

	return nil
}

// AddClaim attaches a typed key/value claim to the account. Claim types the
// engine mints itself (sub, email, and the registered JWT set) are rejected.
// Uniqueness per (user, type) is the store's policy; the engine does not
// deduplicate.
func (e *Engine) AddClaim(ctx context.Context, userID, claimType, claimValue string) (*UserClaim, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if v := checkStruct(claimInput{Type: claimType, Value: claimValue}); len(v) > 0 {
		return nil, v
	}
	if isReservedClaimType(claimType) {
		return nil, Violations{{Field: "type", Code: "reserved", Message: fmt.Sprintf("claim type %q is reserved", claimType)}}
	}

	if _, err := e.users.FetchByID(ctx, userID); err != nil {
		return nil, err
	}

	claim := UserClaim{
		ID:     uuid.NewString(),
		Type:   claimType,
		Value:  claimValue,
		UserID: userID,
	}
	if err := e.claims.Create(ctx, []UserClaim{claim}); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}

	e.emitAudit(ctx, auditEventClaimAdded, true, userID, e.locator.CurrentIP(ctx), nil, map[string]string{"claim_type": claimType})

	return &claim, nil
}

func (e *Engine) generateAccountToken(ctx context.Context, userID string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	user, err := e.users.FetchByID(ctx, userID)
	if err != nil {
		return "", err
	}

	signed, _, err := e.issuer.IssueAccess(map[string]any{
		"sub":   user.ID,
		"email": user.Email,
	}, e.config.ConfirmationTTL)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	return signed, nil
}

// assertTokenSubject verifies tokenStr and checks its subject claim against
// userID. The check runs before any store read so a forged or cross-account
// token can never cause a mutation.
func (e *Engine) assertTokenSubject(tokenStr, userID string) error {
	claims, err := e.issuer.ReadClaims(tokenStr, "sub")
	if err != nil {
		return ErrTokenInvalid
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return ErrTokenInvalid
	}
	if sub != userID {
		return ErrTokenSubjectMismatch
	}

	return nil
}

func (e *Engine) mutateAccount(ctx context.Context, userID, field string, mutate func(*User)) error {
	user, err := e.users.FetchByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := e.commitUser(ctx, user, mutate); err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventAccountUpdated, true, user.ID, e.locator.CurrentIP(ctx), nil, map[string]string{"field": field})

	return nil
}
