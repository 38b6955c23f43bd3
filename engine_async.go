package authcore

import "context"

// AsyncResult carries the outcome of a non-blocking engine call. Exactly one
// value is sent on the channel returned by the *Async methods; the channel is
// buffered so an abandoned result never leaks a goroutine.
type AsyncResult[T any] struct {
	Value T
	Err   error
}

// SignInAsync is [Engine.SignIn] in a non-blocking calling convention.
func (e *Engine) SignInAsync(ctx context.Context, identifier, plainPassword string) <-chan AsyncResult[*SignInResult] {
	return dispatch(func() (*SignInResult, error) {
		return e.SignIn(ctx, identifier, plainPassword)
	})
}

// SignInWithTOTPAsync is [Engine.SignInWithTOTP] in a non-blocking calling
// convention.
func (e *Engine) SignInWithTOTPAsync(ctx context.Context, identifier, plainPassword, code string) <-chan AsyncResult[*SignInResult] {
	return dispatch(func() (*SignInResult, error) {
		return e.SignInWithTOTP(ctx, identifier, plainPassword, code)
	})
}

// ConfirmEmailAsync is [Engine.ConfirmEmail] in a non-blocking calling
// convention.
func (e *Engine) ConfirmEmailAsync(ctx context.Context, userID, tokenStr string) <-chan AsyncResult[struct{}] {
	return dispatchErr(func() error {
		return e.ConfirmEmail(ctx, userID, tokenStr)
	})
}

// ConfirmPhoneNumberAsync is [Engine.ConfirmPhoneNumber] in a non-blocking
// calling convention.
func (e *Engine) ConfirmPhoneNumberAsync(ctx context.Context, userID, tokenStr string) <-chan AsyncResult[struct{}] {
	return dispatchErr(func() error {
		return e.ConfirmPhoneNumber(ctx, userID, tokenStr)
	})
}

// ResetPasswordAsync is [Engine.ResetPassword] in a non-blocking calling
// convention.
func (e *Engine) ResetPasswordAsync(ctx context.Context, tokenStr, newPassword string) <-chan AsyncResult[struct{}] {
	return dispatchErr(func() error {
		return e.ResetPassword(ctx, tokenStr, newPassword)
	})
}

// GenerateConfirmationTokenAsync is [Engine.GenerateConfirmationToken] in a
// non-blocking calling convention.
func (e *Engine) GenerateConfirmationTokenAsync(ctx context.Context, userID string) <-chan AsyncResult[string] {
	return dispatch(func() (string, error) {
		return e.GenerateConfirmationToken(ctx, userID)
	})
}

// GenerateResetTokenAsync is [Engine.GenerateResetToken] in a non-blocking
// calling convention.
func (e *Engine) GenerateResetTokenAsync(ctx context.Context, userID string) <-chan AsyncResult[string] {
	return dispatch(func() (string, error) {
		return e.GenerateResetToken(ctx, userID)
	})
}

func dispatch[T any](fn func() (T, error)) <-chan AsyncResult[T] {
	out := make(chan AsyncResult[T], 1)
	go func() {
		value, err := fn()
		out <- AsyncResult[T]{Value: value, Err: err}
		close(out)
	}()
	return out
}

func dispatchErr(fn func() error) <-chan AsyncResult[struct{}] {
	return dispatch(func() (struct{}, error) {
		return struct{}{}, fn()
	})
}
