// Package crypto seals personal data (lead emails and phone numbers) at rest
// with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// prefix marks sealed values so rows written before a key was configured
// still read back.
const prefix = "enc:v1:"

// passphrasePrefix marks a key given as a passphrase rather than raw bytes.
const passphrasePrefix = "passphrase:"

// minPassphrase is the shortest passphrase NewCipher accepts.
const minPassphrase = 16

// keySalt is fixed: the derived key must be the same on every start.
var keySalt = []byte("mbnakom/leads/v1")

// ErrCiphertext is returned when a sealed value cannot be opened.
var ErrCiphertext = errors.New("invalid ciphertext")

// Cipher seals and opens column values. A nil *Cipher passes values through.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a Cipher from a 32-byte key given as hex or base64, or
// from "passphrase:<text>", which is stretched to 32 bytes with Argon2id.
// It returns nil when key is empty (sealing disabled).
func NewCipher(key string) (*Cipher, error) {
	if key == "" {
		return nil, nil
	}

	raw, err := decodeKey(key)
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(raw))
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

func decodeKey(key string) ([]byte, error) {
	if pass, ok := strings.CutPrefix(key, passphrasePrefix); ok {
		if len(pass) < minPassphrase {
			return nil, fmt.Errorf("passphrase must be at least %d characters", minPassphrase)
		}
		return argon2.IDKey([]byte(pass), keySalt, 1, 64*1024, 4, 32), nil
	}
	if raw, err := hex.DecodeString(key); err == nil {
		return raw, nil
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("key is neither hex nor base64")
	}
	return raw, nil
}

// Seal encrypts value for column. The column name is bound as associated
// data, so a value sealed for one column does not open in another.
func (c *Cipher) Seal(column, value string) (string, error) {
	if c == nil || value == "" {
		return value, nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(value), []byte(column))
	return prefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value sealed for column. Values without the sealed prefix
// are returned unchanged.
func (c *Cipher) Open(column, value string) (string, error) {
	if !strings.HasPrefix(value, prefix) {
		return value, nil
	}
	if c == nil {
		return "", fmt.Errorf("%w: no key configured for sealed %s", ErrCiphertext, column)
	}

	data, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	n := c.aead.NonceSize()
	if len(data) < n {
		return "", fmt.Errorf("%w: too short", ErrCiphertext)
	}
	plain, err := c.aead.Open(nil, data[:n], data[n:], []byte(column))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	return string(plain), nil
}
