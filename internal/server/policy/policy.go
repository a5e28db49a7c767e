package policy

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// Violation codes.
const (
	CodeTooShort            = "PasswordTooShort"
	CodeRequiresDigit       = "PasswordRequiresDigit"
	CodeRequiresLower       = "PasswordRequiresLower"
	CodeRequiresUpper       = "PasswordRequiresUpper"
	CodeRequiresNonAlphanum = "PasswordRequiresNonAlphanumeric"
	CodeRequiresUniqueChars = "PasswordRequiresUniqueChars"
)

// Policy holds the password composition rules. Zero thresholds disable
// the corresponding rule.
type Policy struct {
	RequiredLength         int  `json:"required_length"`
	RequireDigit           bool `json:"require_digit"`
	RequireLowercase       bool `json:"require_lowercase"`
	RequireUppercase       bool `json:"require_uppercase"`
	RequireNonAlphanumeric bool `json:"require_non_alphanumeric"`
	RequiredUniqueChars    int  `json:"required_unique_chars"`
}

// Default returns the stock policy: 8 characters, every character class
// required, at least one unique character.
func Default() Policy {
	return Policy{
		RequiredLength:         8,
		RequireDigit:           true,
		RequireLowercase:       true,
		RequireUppercase:       true,
		RequireNonAlphanumeric: true,
		RequiredUniqueChars:    1,
	}
}

// Violation is a single unmet rule.
type Violation struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ViolationError lists every rule a password failed.
type ViolationError struct {
	Violations []Violation
}

func (e *ViolationError) Error() string {
	return strings.Join(e.Descriptions(), ", ")
}

// Descriptions returns the human-readable text of each violation, in rule order.
func (e *ViolationError) Descriptions() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.Description)
	}
	return out
}

// Has reports whether a violation with the given code is present.
func (e *ViolationError) Has(code string) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

func (e *ViolationError) Unwrap() error { return common.ErrPolicyViolation }

// Validate checks password against every enabled rule and returns a
// *ViolationError listing all failures, or nil.
func (p Policy) Validate(password string) error {
	var violations []Violation

	if p.RequiredLength > 0 && utf8.RuneCountInString(password) < p.RequiredLength {
		violations = append(violations, Violation{
			Code:        CodeTooShort,
			Description: fmt.Sprintf("Passwords must be at least %d characters.", p.RequiredLength),
		})
	}

	var hasDigit, hasLower, hasUpper, hasNonAlphanum bool
	unique := make(map[rune]struct{})
	for _, r := range password {
		switch {
		case isDigit(r):
			hasDigit = true
		case isLower(r):
			hasLower = true
		case isUpper(r):
			hasUpper = true
		default:
			hasNonAlphanum = true
		}
		unique[r] = struct{}{}
	}

	if p.RequireNonAlphanumeric && !hasNonAlphanum {
		violations = append(violations, Violation{
			Code:        CodeRequiresNonAlphanum,
			Description: "Passwords must have at least one non alphanumeric character.",
		})
	}
	if p.RequireDigit && !hasDigit {
		violations = append(violations, Violation{
			Code:        CodeRequiresDigit,
			Description: "Passwords must have at least one digit ('0'-'9').",
		})
	}
	if p.RequireLowercase && !hasLower {
		violations = append(violations, Violation{
			Code:        CodeRequiresLower,
			Description: "Passwords must have at least one lowercase ('a'-'z').",
		})
	}
	if p.RequireUppercase && !hasUpper {
		violations = append(violations, Violation{
			Code:        CodeRequiresUpper,
			Description: "Passwords must have at least one uppercase ('A'-'Z').",
		})
	}
	if p.RequiredUniqueChars > 0 && len(unique) < p.RequiredUniqueChars {
		violations = append(violations, Violation{
			Code:        CodeRequiresUniqueChars,
			Description: fmt.Sprintf("Passwords must use at least %d different characters.", p.RequiredUniqueChars),
		})
	}

	if len(violations) == 0 {
		return nil
	}
	return &ViolationError{Violations: violations}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
