package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier decodes tokens and checks their HMAC signature against a shared
// key. Expired tokens are rejected by the parser.
type Verifier struct {
	key    []byte
	parser *jwt.Parser
}

// NewVerifier returns a Verifier for the given signing key.
func NewVerifier(key string) *Verifier {
	return &Verifier{
		key:    []byte(key),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})),
	}
}

// Decode implements Decoder.
func (v *Verifier) Decode(raw string) (*Claims, error) {
	var c Claims
	_, err := v.parser.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}
	return &c, nil
}

// NewDecoder returns a Verifier when key is set and an Unverified decoder
// otherwise.
func NewDecoder(key string) Decoder {
	if key == "" {
		return Unverified{}
	}
	return NewVerifier(key)
}
