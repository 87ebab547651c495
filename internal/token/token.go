// Package token decodes the session tokens issued by the backend login
// endpoint.
//
// Decoding does not verify the signature. The claims are trusted for page
// gating and form pre-fill only; the backend re-checks authorization on every
// call it receives. A Verifier is available when a shared signing key is
// configured.
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

// Role names carried in the Roles claim.
const (
	RoleAdmin     = "Admin"
	RoleModerator = "Moderator"
	RoleUser      = "User"
)

var (
	// ErrMalformed is returned when the token is not three dot-separated segments.
	ErrMalformed = errors.New("token: malformed")
	// ErrEncoding is returned when the payload segment is not valid base64url or UTF-8.
	ErrEncoding = errors.New("token: invalid payload encoding")
	// ErrPayload is returned when the payload is not a JSON claims object.
	ErrPayload = errors.New("token: invalid payload")
)

// Claims is the decoded payload of a session token.
type Claims struct {
	ID          string           `json:"id"`
	Email       string           `json:"email"`
	Username    string           `json:"username"`
	FirstName   string           `json:"firstName"`
	LastName    string           `json:"lastName"`
	PhoneNumber string           `json:"phoneNumber"`
	Roles       jwt.ClaimStrings `json:"Roles,omitempty"`
	ExpiresAt   int64            `json:"exp"`
	Issuer      string           `json:"iss"`
	Audience    jwt.ClaimStrings `json:"aud,omitempty"`
}

// Valid reports whether the claims describe a live session at now.
func (c *Claims) Valid(now time.Time) bool {
	if c == nil {
		return false
	}
	return c.ExpiresAt*1000 > now.UnixMilli()
}

// HasRole reports whether role is present in the Roles claim.
func (c *Claims) HasRole(role string) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// FullName joins first and last name.
func (c *Claims) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// GetExpirationTime implements jwt.Claims.
func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

// GetIssuedAt implements jwt.Claims.
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) { return nil, nil }

// GetNotBefore implements jwt.Claims.
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }

// GetIssuer implements jwt.Claims.
func (c *Claims) GetIssuer() (string, error) { return c.Issuer, nil }

// GetSubject implements jwt.Claims.
func (c *Claims) GetSubject() (string, error) { return c.ID, nil }

// GetAudience implements jwt.Claims.
func (c *Claims) GetAudience() (jwt.ClaimStrings, error) { return c.Audience, nil }

// Decoder turns a raw token string into claims.
type Decoder interface {
	Decode(raw string) (*Claims, error)
}

// Unverified decodes tokens without checking their signature.
type Unverified struct{}

// Decode implements Decoder.
func (Unverified) Decode(raw string) (*Claims, error) {
	return Decode(raw)
}

// Decode reads the claims out of the middle segment of raw.
func Decode(raw string) (*Claims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 || parts[1] == "" {
		return nil, ErrMalformed
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if !utf8.Valid(payload) {
		return nil, ErrEncoding
	}

	var c Claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	return &c, nil
}

// decodeSegment maps the base64url alphabet onto standard base64 and restores
// the padding stripped by the issuer.
func decodeSegment(seg string) ([]byte, error) {
	s := strings.NewReplacer("-", "+", "_", "/").Replace(seg)
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return base64.StdEncoding.DecodeString(s)
}
