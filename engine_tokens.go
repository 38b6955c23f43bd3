package authcore

import "time"

// ValidateToken reports whether tokenStr carries a valid signature, an
// unexpired claim set, and the configured issuer/audience. Any failure is
// false; the reason is deliberately not exposed.
func (e *Engine) ValidateToken(tokenStr string) bool {
	if !e.ready() {
		return false
	}
	return e.issuer.Validate(tokenStr)
}

// ReadTokenClaims verifies tokenStr and extracts the named claims (all
// claims when no names are given). The whole call fails with
// [ErrTokenInvalid] when signature or expiry checks fail or a requested
// claim is absent.
func (e *Engine) ReadTokenClaims(tokenStr string, claimNames ...string) (map[string]any, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.issuer.ReadClaims(tokenStr, claimNames...)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// TokenSubject extracts the subject claim from a verified token.
func (e *Engine) TokenSubject(tokenStr string) (string, error) {
	claims, err := e.ReadTokenClaims(tokenStr, "sub")
	if err != nil {
		return "", err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrTokenInvalid
	}

	return sub, nil
}

// TokenExpiry extracts the expiration timestamp from a verified token.
func (e *Engine) TokenExpiry(tokenStr string) (time.Time, error) {
	claims, err := e.ReadTokenClaims(tokenStr, "exp")
	if err != nil {
		return time.Time{}, err
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, ErrTokenInvalid
	}

	return time.Unix(int64(exp), 0), nil
}
