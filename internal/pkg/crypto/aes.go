package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrMissingMasterKey is returned when no master key material is configured.
	ErrMissingMasterKey = errors.New("master key is not configured")
	// ErrMalformedCiphertext is returned when stored ciphertext does not match
	// the ivHex:cipherHex format. It indicates data corruption, not a transient
	// failure, and must never be retried.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
)

// SecretCipher encrypts TOTP secrets for storage using AES-256-CTR.
// The cipher key is derived from the operator master key with SHA-256, so the
// master key does not need to be exactly 32 bytes. The serialized form is
// ivHex:cipherHex with a fresh random 16-byte IV per encryption, so encrypting
// the same secret twice yields different outputs.
type SecretCipher struct {
	block cipher.Block
}

// NewSecretCipher derives the cipher key from masterKey.
func NewSecretCipher(masterKey []byte) (*SecretCipher, error) {
	if len(masterKey) == 0 {
		return nil, ErrMissingMasterKey
	}
	key := sha256.Sum256(masterKey)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return &SecretCipher{block: block}, nil
}

// Encrypt returns hex(iv) + ":" + hex(ciphertext).
func (c *SecretCipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	ciphertext := make([]byte, len(plaintext))
	cipher.NewCTR(c.block, iv).XORKeyStream(ciphertext, []byte(plaintext))

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt is the inverse of Encrypt. It fails with ErrMalformedCiphertext when
// the delimiter count, hex encoding, or IV length is wrong.
func (c *SecretCipher) Decrypt(encrypted string) (string, error) {
	parts := strings.Split(encrypted, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: expected ivHex:cipherHex", ErrMalformedCiphertext)
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: invalid IV encoding", ErrMalformedCiphertext)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: IV must be %d bytes, got %d", ErrMalformedCiphertext, aes.BlockSize, len(iv))
	}

	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext encoding", ErrMalformedCiphertext)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCTR(c.block, iv).XORKeyStream(plaintext, ciphertext)

	return string(plaintext), nil
}
