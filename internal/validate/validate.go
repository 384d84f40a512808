// Package validate provides shared input validation for the SuiStream HTTP
// services.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ValidationError describes a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiError collects multiple validation errors for a single request.
type MultiError struct {
	Errors []ValidationError
}

// Add appends a validation error. If err is nil, Add is a no-op.
func (m *MultiError) Add(err error) {
	if err == nil {
		return
	}
	if ve, ok := err.(*ValidationError); ok {
		m.Errors = append(m.Errors, *ve)
	} else {
		m.Errors = append(m.Errors, ValidationError{Field: "request", Message: err.Error()})
	}
}

// HasErrors reports whether any errors have been collected.
func (m *MultiError) HasErrors() bool { return len(m.Errors) > 0 }

// Error returns a pipe-delimited summary of all errors.
func (m *MultiError) Error() string {
	parts := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		parts[i] = e.Error()
	}
	return strings.Join(parts, " | ")
}

// NonEmptyString validates that value is not empty or whitespace-only.
func NonEmptyString(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "must not be empty"}
	}
	return nil
}

// MaxLength validates that value does not exceed max rune count.
func MaxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must not exceed %d characters", max)}
	}
	return nil
}

// addressRE matches a ledger address or object handle: 0x followed by 1-64
// hex characters. Fullnodes accept short forms; 64 is the canonical width.
var addressRE = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// IsWalletAddress validates that value looks like a ledger account address.
func IsWalletAddress(field, value string) error {
	if !addressRE.MatchString(strings.TrimSpace(value)) {
		return &ValidationError{Field: field, Message: "must be a 0x-prefixed hex address"}
	}
	return nil
}

// IsObjectHandle validates that value looks like an on-chain object reference.
// Object ids share the address format.
func IsObjectHandle(field, value string) error {
	if !addressRE.MatchString(strings.TrimSpace(value)) {
		return &ValidationError{Field: field, Message: "must be a 0x-prefixed hex object id"}
	}
	return nil
}

// IsTier validates a subscription tier level (1=Basic, 2=Premium, 3=Ultimate).
func IsTier(field string, value int) error {
	if value < 1 || value > 3 {
		return &ValidationError{Field: field, Message: "must be 1, 2, or 3"}
	}
	return nil
}
