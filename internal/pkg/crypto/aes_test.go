package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *SecretCipher {
	t.Helper()
	c, err := NewSecretCipher([]byte("operator-master-key"))
	require.NoError(t, err)
	return c
}

func TestNewSecretCipher_MissingKey(t *testing.T) {
	_, err := NewSecretCipher(nil)
	assert.ErrorIs(t, err, ErrMissingMasterKey)

	_, err = NewSecretCipher([]byte{})
	assert.ErrorIs(t, err, ErrMissingMasterKey)
}

func TestNewSecretCipher_AnyKeyLength(t *testing.T) {
	// The master key is hashed to the cipher key length, so arbitrary
	// operator-supplied strings are accepted.
	for _, key := range []string{"x", "short", strings.Repeat("k", 100)} {
		_, err := NewSecretCipher([]byte(key))
		assert.NoError(t, err, "key %q", key)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"base32 secret", "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"},
		{"empty", ""},
		{"special characters", "p@ss wörd\n\t:colon:"},
		{"single byte", "a"},
		{"long", strings.Repeat("secret-", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := c.Encrypt(tt.plaintext)
			require.NoError(t, err)

			dec, err := c.Decrypt(enc)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, dec)
		})
	}
}

func TestEncrypt_FreshIVPerCall(t *testing.T) {
	c := newTestCipher(t)

	first, err := c.Encrypt("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	second, err := c.Encrypt("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	dec1, err := c.Decrypt(first)
	require.NoError(t, err)
	dec2, err := c.Decrypt(second)
	require.NoError(t, err)
	assert.Equal(t, dec1, dec2)
}

func TestEncrypt_Format(t *testing.T) {
	c := newTestCipher(t)

	enc, err := c.Encrypt("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	parts := strings.Split(enc, ":")
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 32) // 16-byte IV, hex encoded
	assert.Regexp(t, "^[0-9a-f]+$", parts[0])
	assert.Regexp(t, "^[0-9a-f]*$", parts[1])
}

func TestDecrypt_Malformed(t *testing.T) {
	c := newTestCipher(t)

	tests := []struct {
		name  string
		input string
	}{
		{"no delimiter", "deadbeef"},
		{"too many delimiters", "aa:bb:cc"},
		{"odd hex length in IV", "abc:deadbeef"},
		{"non-hex IV", "zz" + strings.Repeat("0", 30) + ":deadbeef"},
		{"short IV", "deadbeef:deadbeef"},
		{"odd hex length in ciphertext", strings.Repeat("0", 32) + ":abc"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decrypt(tt.input)
			assert.ErrorIs(t, err, ErrMalformedCiphertext)
		})
	}
}

func TestDecrypt_DifferentKeysDiverge(t *testing.T) {
	c1, err := NewSecretCipher([]byte("key-one"))
	require.NoError(t, err)
	c2, err := NewSecretCipher([]byte("key-two"))
	require.NoError(t, err)

	enc, err := c1.Encrypt("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	dec, err := c2.Decrypt(enc)
	require.NoError(t, err) // CTR is not authenticated, decrypt succeeds
	assert.NotEqual(t, "JBSWY3DPEHPK3PXP", dec)
}
