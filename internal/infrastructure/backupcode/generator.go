package backupcode

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// CodeLength is the number of characters excluding the hyphen.
	CodeLength = 8
	// DefaultCount is the batch size generated at setup or regeneration.
	DefaultCount = 10
	// Charset excludes I, O, 0, 1 and similarly confusable glyphs.
	Charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Generate creates count one-time backup codes in XXXX-XXXX format. Each code
// is drawn independently; uniqueness within a batch rides on the entropy of
// the generator (32^8 possibilities make collisions astronomically unlikely).
func Generate(count int) ([]string, error) {
	if count < 1 {
		count = DefaultCount
	}
	codes := make([]string, count)
	for i := range codes {
		code, err := generateSingle()
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}
	return codes, nil
}

func generateSingle() (string, error) {
	bytes := make([]byte, CodeLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	var sb strings.Builder
	sb.Grow(CodeLength + 1)
	for i, b := range bytes {
		if i == 4 {
			sb.WriteByte('-')
		}
		// len(Charset) is 32, which divides 256 evenly, so no modulo bias.
		sb.WriteByte(Charset[int(b)%len(Charset)])
	}
	return sb.String(), nil
}

// Normalize brings user input to the canonical hashed form: lower-cased,
// whitespace and hyphens stripped, hyphen re-inserted after the 4th character.
// Codes entered with or without the hyphen, in any case, normalize identically.
func Normalize(code string) string {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(code)))
	if len(stripped) != CodeLength {
		return stripped
	}
	return stripped[:4] + "-" + stripped[4:]
}

// Hash produces the persisted one-way digest of a backup code.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(Normalize(code)))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether code matches any digest in hashes. The set is small
// (at most a batch), so a constant-time linear scan is sufficient.
func Verify(code string, hashes []string) bool {
	candidate := []byte(Hash(code))
	matched := false
	for _, h := range hashes {
		if subtle.ConstantTimeCompare(candidate, []byte(h)) == 1 {
			matched = true
		}
	}
	return matched
}

// MatchingHash returns the digest in hashes that code matches, for callers
// that need to consume the matched entry.
func MatchingHash(code string, hashes []string) (string, bool) {
	candidate := []byte(Hash(code))
	for _, h := range hashes {
		if subtle.ConstantTimeCompare(candidate, []byte(h)) == 1 {
			return h, true
		}
	}
	return "", false
}

// IsBackupCodeFormat reports whether input looks like a backup code after
// normalization (8 characters from the restricted alphabet, as opposed to a
// 6-digit TOTP code).
func IsBackupCodeFormat(code string) bool {
	normalized := Normalize(code)
	if len(normalized) != CodeLength+1 {
		return false
	}
	for _, c := range strings.ToUpper(normalized) {
		if c == '-' {
			continue
		}
		if !strings.ContainsRune(Charset, c) {
			return false
		}
	}
	return true
}
