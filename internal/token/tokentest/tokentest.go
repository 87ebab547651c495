// Package tokentest mints session tokens for tests.
package tokentest

import (
	"testing"
	"time"

	"github.com/alecgard/mbnakom/internal/token"
	"github.com/golang-jwt/jwt/v5"
)

// Key is the HMAC key used by Mint.
const Key = "test-signing-key"

// Claims returns a populated claims value expiring after ttl.
func Claims(ttl time.Duration, roles ...string) *token.Claims {
	return &token.Claims{
		ID:          "user-1",
		Email:       "a@b.com",
		Username:    "alice",
		FirstName:   "Alice",
		LastName:    "Hassan",
		PhoneNumber: "+966500000000",
		Roles:       roles,
		ExpiresAt:   time.Now().Add(ttl).Unix(),
		Issuer:      "mbnakom-api",
		Audience:    jwt.ClaimStrings{"mbnakom-web"},
	}
}

// Mint signs c with Key.
func Mint(t testing.TB, c *token.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(Key))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}
