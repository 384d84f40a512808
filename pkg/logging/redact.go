// redact.go — Sensitive data masking for safe logging.
//
// These helpers ensure API keys, session tokens, and wallet addresses are
// never written to logs in full. Call before passing values to any log
// statement.
package logging

import "strings"

// RedactToken masks an API key or session token for logging.
// Shows the first 8 characters followed by "..." to allow correlation
// without exposing the full credential.
//
// Examples:
//
//	"eyJhbGciOiJIUzI1..." → "eyJhbGci..."
//	"" → "[empty]"
func RedactToken(t string) string {
	if len(t) == 0 {
		return "[empty]"
	}
	if len(t) <= 8 {
		return t[:1] + "..."
	}
	return t[:8] + "..."
}

// RedactWallet masks a wallet address for logging.
// Keeps the 0x prefix plus the first and last 4 hex characters, enough to
// correlate log lines against the registry without logging the full address.
//
// Examples:
//
//	"0x7b8e...6087" → "0x7b8e…6087"
//	"short"        → "s..."
func RedactWallet(addr string) string {
	if len(addr) == 0 {
		return "[empty]"
	}
	a := strings.TrimPrefix(addr, "0x")
	if len(a) <= 8 {
		return addr[:1] + "..."
	}
	return "0x" + a[:4] + "…" + a[len(a)-4:]
}
