// Package auth provides session token generation, validation, and credential
// checking for the single privileged admin role.
//
// End users never authenticate here — their identity and authorization
// derive entirely from ledger signatures via the wallet extension. This
// package only guards the registry mutation surface.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// SessionTTL is the fixed lifetime of an admin session token. There is no
// refresh mechanism — an expired session requires a fresh login.
const SessionTTL = 2 * time.Hour

// ErrInvalidToken covers missing, malformed, tampered, and expired tokens.
// Callers branch on it; they never see parser internals.
var ErrInvalidToken = errors.New("invalid or expired session token")

// Claims is the signed content of an admin session token.
// The admin identity is a username today; extending to a multi-admin
// directory only means issuing tokens with other subjects.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// GenerateSessionToken creates a signed HS256 session token for the given
// admin identity, valid for SessionTTL.
func GenerateSessionToken(secret, username string) (string, error) {
	if secret == "" {
		return "", errors.New("session secret not configured")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
			Issuer:    "suistream",
		},
		Username: username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifySessionToken parses and validates a session token.
// Returns ErrInvalidToken on any signature, expiry, or shape problem —
// it never panics into caller logic.
func VerifySessionToken(secret, tokenStr string) (*Claims, error) {
	if secret == "" || tokenStr == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Username == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CheckCredentials verifies a login attempt against the configured admin
// username and bcrypt password hash. Password comparison is always a bcrypt
// hash comparison — never plaintext equality.
func CheckCredentials(username, password, wantUsername, wantPassHash string) bool {
	if wantUsername == "" || wantPassHash == "" {
		return false
	}
	if username != wantUsername {
		// Burn a comparison anyway so a wrong username costs the same as a
		// wrong password.
		_ = bcrypt.CompareHashAndPassword([]byte(wantPassHash), []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(wantPassHash), []byte(password)) == nil
}
