// Package cipher encrypts stored ticketing credentials with age.
//
// A single X25519 identity is both the recipient for encryption and the
// identity for decryption. Blobs are base64 strings so they fit in a TEXT
// column. The Cipher is stateless after construction and safe for
// concurrent use.
package cipher

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
)

// ErrDecrypt is returned when a blob cannot be decrypted with the current key.
var ErrDecrypt = errors.New("credential decryption failed")

// Cipher seals and opens credential blobs.
type Cipher struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

// New parses an AGE-SECRET-KEY-1... identity string.
func New(identity string) (*Cipher, error) {
	id, err := age.ParseX25519Identity(strings.TrimSpace(identity))
	if err != nil {
		return nil, fmt.Errorf("parsing age identity: %w", err)
	}
	return &Cipher{identity: id, recipient: id.Recipient()}, nil
}

// GenerateIdentity returns a fresh identity string, for bootstrapping a
// deployment and for tests.
func GenerateIdentity() (string, error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating age identity: %w", err)
	}
	return id.String(), nil
}

// Encrypt seals plaintext and returns a base64 blob.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, c.recipient)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decrypt opens a blob produced by Encrypt. Every failure wraps ErrDecrypt.
func (c *Cipher) Decrypt(blob string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64: %v", ErrDecrypt, err)
	}
	r, err := age.Decrypt(bytes.NewReader(raw), c.identity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: reading plaintext: %v", ErrDecrypt, err)
	}
	return string(plaintext), nil
}
