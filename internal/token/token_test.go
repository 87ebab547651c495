package token_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/alecgard/mbnakom/internal/token"
	"github.com/alecgard/mbnakom/internal/token/tokentest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestDecode_RoundTrip(t *testing.T) {
	want := tokentest.Claims(time.Hour, token.RoleAdmin, token.RoleUser)
	raw := tokentest.Mint(t, want)

	got, err := token.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.HasRole(token.RoleAdmin))
	assert.False(t, got.HasRole(token.RoleModerator))
	assert.Equal(t, "Alice Hassan", got.FullName())
}

func TestDecode_SingleRoleString(t *testing.T) {
	raw := segment(`{"alg":"none"}`) + "." + segment(`{"id":"7","Roles":"Admin","exp":4102444800}`) + ".sig"

	got, err := token.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "7", got.ID)
	assert.True(t, got.HasRole(token.RoleAdmin))
}

func TestDecode_PaddedAndURLAlphabet(t *testing.T) {
	// Issuers may or may not strip padding.
	payload := `{"id":"?>","exp":1}`
	padded := base64.URLEncoding.EncodeToString([]byte(payload))

	got, err := token.Decode("h." + padded + ".s")
	require.NoError(t, err)
	assert.Equal(t, "?>", got.ID)

	got, err = token.Decode("h." + segment(payload) + ".s")
	require.NoError(t, err)
	assert.Equal(t, "?>", got.ID)
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", token.ErrMalformed},
		{"one segment", "abc", token.ErrMalformed},
		{"two segments", "abc.def", token.ErrMalformed},
		{"four segments", "a.b.c.d", token.ErrMalformed},
		{"empty payload", "a..c", token.ErrMalformed},
		{"bad base64", "a.!!!!.c", token.ErrEncoding},
		{"invalid utf8", "a." + base64.RawURLEncoding.EncodeToString([]byte{0xff, 0xfe}) + ".c", token.ErrEncoding},
		{"not json", "a." + segment("not json") + ".c", token.ErrPayload},
		{"json array", "a." + segment(`[1,2]`) + ".c", token.ErrPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *token.Claims
			var err error
			assert.NotPanics(t, func() { got, err = token.Decode(tt.raw) })
			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClaimsValid(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.True(t, (&token.Claims{ExpiresAt: now.Unix() + 1}).Valid(now))
	assert.False(t, (&token.Claims{ExpiresAt: now.Unix()}).Valid(now))
	assert.False(t, (&token.Claims{ExpiresAt: now.Unix() - 60}).Valid(now))

	var nilClaims *token.Claims
	assert.False(t, nilClaims.Valid(now))
	assert.False(t, nilClaims.HasRole(token.RoleAdmin))
}

func TestVerifier(t *testing.T) {
	v := token.NewVerifier(tokentest.Key)

	good := tokentest.Mint(t, tokentest.Claims(time.Hour, token.RoleUser))
	c, err := v.Decode(good)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.ID)

	forged := token.NewVerifier("other-key")
	_, err = forged.Decode(good)
	assert.Error(t, err)

	expired := tokentest.Mint(t, tokentest.Claims(-time.Hour))
	_, err = v.Decode(expired)
	assert.Error(t, err)

	unsigned := segment(`{"alg":"none","typ":"JWT"}`) + "." + segment(`{"id":"x","Roles":["Admin"],"exp":4102444800}`) + "."
	_, err = v.Decode(unsigned)
	assert.Error(t, err)
}

func TestNewDecoder(t *testing.T) {
	_, ok := token.NewDecoder("").(token.Unverified)
	assert.True(t, ok)

	_, ok = token.NewDecoder("k").(*token.Verifier)
	assert.True(t, ok)
}
