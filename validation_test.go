package authcore

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCheckPasswordAggregatesAllRules(t *testing.T) {
	policy := PasswordPolicy{
		MinLength:      10,
		MaxLength:      64,
		RequireDigit:   true,
		RequireUpper:   true,
		RequireLower:   true,
		RequireSpecial: true,
	}

	violations := checkPassword(policy, "short")
	if len(violations) < 4 {
		t.Fatalf("expected every violated rule reported at once, got %+v", violations)
	}

	codes := map[string]bool{}
	for _, v := range violations {
		codes[v.Code] = true
	}
	for _, code := range []string{"min_length", "require_digit", "require_upper", "require_special"} {
		if !codes[code] {
			t.Fatalf("expected violation %s, got %+v", code, violations)
		}
	}
}

func TestCheckPasswordAcceptsCompliant(t *testing.T) {
	policy := PasswordPolicy{
		MinLength:      10,
		RequireDigit:   true,
		RequireUpper:   true,
		RequireLower:   true,
		RequireSpecial: true,
	}

	if v := checkPassword(policy, "Str0ng!passphrase"); len(v) != 0 {
		t.Fatalf("expected no violations, got %+v", v)
	}
}

func TestCheckPasswordMaxLength(t *testing.T) {
	policy := PasswordPolicy{MinLength: 4, MaxLength: 8}

	v := checkPassword(policy, strings.Repeat("a", 20))
	if len(v) != 1 || v[0].Code != "max_length" {
		t.Fatalf("expected a single max_length violation, got %+v", v)
	}
}

func TestViolationsErrorMessage(t *testing.T) {
	v := Violations{
		{Field: "email", Code: "email", Message: "failed email check"},
		{Field: "password", Code: "min_length", Message: "shorter than minimum length"},
	}

	msg := v.Error()
	if !strings.Contains(msg, "email") || !strings.Contains(msg, "password") {
		t.Fatalf("expected both fields in the message, got %q", msg)
	}
}

func TestAsViolations(t *testing.T) {
	v := Violations{{Field: "email", Code: "email", Message: "failed email check"}}
	wrapped := fmt.Errorf("register: %w", v)

	got, ok := AsViolations(wrapped)
	if !ok || !got.Has("email") {
		t.Fatalf("expected unwrapped violations, got %v %v", got, ok)
	}

	if _, ok := AsViolations(errors.New("plain")); ok {
		t.Fatal("expected no violations from a plain error")
	}
}

func TestCheckStructEmail(t *testing.T) {
	if v := checkStruct(emailInput{Email: "alice@example.com"}); len(v) != 0 {
		t.Fatalf("expected valid email, got %+v", v)
	}
	if v := checkStruct(emailInput{Email: "nope"}); len(v) == 0 {
		t.Fatal("expected a violation for a malformed email")
	}
	if v := checkStruct(emailInput{}); !v.Has("email") {
		t.Fatalf("expected an email violation for the empty input, got %+v", v)
	}
}

func TestCheckStructPhone(t *testing.T) {
	if v := checkStruct(phoneInput{PhoneNumber: "+351912345678"}); len(v) != 0 {
		t.Fatalf("expected valid E.164 number, got %+v", v)
	}
	if v := checkStruct(phoneInput{PhoneNumber: "0912345678"}); len(v) == 0 {
		t.Fatal("expected a violation for a non-E.164 number")
	}
}
