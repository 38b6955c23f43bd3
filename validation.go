package authcore

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Violation is one structured input-validation failure.
type Violation struct {
	Field   string
	Code    string
	Message string
}

// Violations aggregates every validation failure for a single call. It is
// raised as one error before any store interaction occurs: callers never
// observe partial validation.
type Violations []Violation

func (v Violations) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, violation := range v {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(violation.Field)
		b.WriteString(": ")
		b.WriteString(violation.Message)
	}
	return b.String()
}

// Has reports whether any violation targets the given field.
func (v Violations) Has(field string) bool {
	for _, violation := range v {
		if violation.Field == field {
			return true
		}
	}
	return false
}

// AsViolations unwraps err into Violations when the error is an aggregated
// validation fault.
func AsViolations(err error) (Violations, bool) {
	var v Violations
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

type emailInput struct {
	Email string `validate:"required,email"`
}

type usernameInput struct {
	Username string `validate:"required,min=3,max=64"`
}

type phoneInput struct {
	PhoneNumber string `validate:"required,e164"`
}

type nameInput struct {
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
}

type claimInput struct {
	Type  string `validate:"required,max=128"`
	Value string `validate:"required,max=1024"`
}

func checkStruct(input any) Violations {
	err := structValidator.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return Violations{{Field: "input", Code: "invalid", Message: err.Error()}}
	}

	out := make(Violations, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		out = append(out, Violation{
			Field:   strings.ToLower(fe.Field()),
			Code:    fe.Tag(),
			Message: "failed " + fe.Tag() + " check",
		})
	}
	return out
}

// checkPassword evaluates password against policy and aggregates every
// violated rule.
func checkPassword(policy PasswordPolicy, password string) Violations {
	var out Violations

	if len(password) < policy.MinLength {
		out = append(out, Violation{Field: "password", Code: "min_length", Message: "shorter than minimum length"})
	}
	if policy.MaxLength > 0 && len(password) > policy.MaxLength {
		out = append(out, Violation{Field: "password", Code: "max_length", Message: "longer than maximum length"})
	}

	var hasDigit, hasUpper, hasLower, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		default:
			hasSpecial = true
		}
	}

	if policy.RequireDigit && !hasDigit {
		out = append(out, Violation{Field: "password", Code: "require_digit", Message: "missing digit"})
	}
	if policy.RequireUpper && !hasUpper {
		out = append(out, Violation{Field: "password", Code: "require_upper", Message: "missing uppercase letter"})
	}
	if policy.RequireLower && !hasLower {
		out = append(out, Violation{Field: "password", Code: "require_lower", Message: "missing lowercase letter"})
	}
	if policy.RequireSpecial && !hasSpecial {
		out = append(out, Violation{Field: "password", Code: "require_special", Message: "missing special character"})
	}

	return out
}
