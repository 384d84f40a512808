// validate_test.go — Unit tests for request field validation.
package validate

import (
	"strings"
	"testing"
)

func TestIsWalletAddress(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"canonical", "0x7b8e0864967427679b4e129f79dc332a885c6087a9c34f477e36482eee6e84cf", true},
		{"short form", "0xabc", true},
		{"uppercase hex", "0xABCDEF", true},
		{"missing prefix", "7b8e0864", false},
		{"empty", "", false},
		{"non-hex", "0xzzzz", false},
		{"too long", "0x" + strings.Repeat("a", 70), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := IsWalletAddress("wallet", tc.value)
			if tc.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tc.valid && err == nil {
				t.Errorf("expected error for %q", tc.value)
			}
		})
	}
}

func TestIsTier(t *testing.T) {
	for _, tier := range []int{1, 2, 3} {
		if err := IsTier("tier", tier); err != nil {
			t.Errorf("tier %d should be valid: %v", tier, err)
		}
	}
	for _, tier := range []int{0, 4, -1} {
		if err := IsTier("tier", tier); err == nil {
			t.Errorf("tier %d should be invalid", tier)
		}
	}
}

func TestMultiError(t *testing.T) {
	var m MultiError
	if m.HasErrors() {
		t.Fatal("fresh MultiError should have no errors")
	}
	m.Add(nil)
	if m.HasErrors() {
		t.Fatal("Add(nil) must be a no-op")
	}
	m.Add(NonEmptyString("wallet", ""))
	m.Add(IsTier("tier", 9))
	if len(m.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(m.Errors))
	}
	if m.Error() == "" {
		t.Error("expected non-empty summary")
	}
}
