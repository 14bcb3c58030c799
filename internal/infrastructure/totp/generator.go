package totp

import (
	"fmt"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	Digits     = otp.DigitsSix // 6 digits
	Period     = 30            // 30 seconds
	SecretSize = 20            // 160 bits (32 chars base32)
	Skew       = 1             // ±1 time step
	Algorithm  = otp.AlgorithmSHA1
)

// GenerateResult contains the material for a new TOTP enrollment
type GenerateResult struct {
	Secret      string // Base32-encoded secret
	OTPAuthURL  string // otpauth:// URI for QR code
	Issuer      string
	AccountName string
}

// Generate creates a new TOTP secret for the given issuer and account label.
// The provisioning URI is built here rather than taken from the library key
// so its shape stays pinned to what enrolled authenticator apps have scanned:
// otpauth://totp/{issuer}:{label}?secret={secret}&issuer={issuer}
func Generate(issuer, accountName string) (*GenerateResult, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      Period,
		SecretSize:  SecretSize,
		Digits:      Digits,
		Algorithm:   Algorithm,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return &GenerateResult{
		Secret:      key.Secret(),
		OTPAuthURL:  ProvisioningURI(key.Secret(), accountName, issuer),
		Issuer:      issuer,
		AccountName: accountName,
	}, nil
}

// ProvisioningURI builds the otpauth URI for an authenticator app.
func ProvisioningURI(secret, accountName, issuer string) string {
	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s",
		url.PathEscape(issuer),
		url.PathEscape(accountName),
		secret,
		url.QueryEscape(issuer),
	)
}

// ValidateCode validates a 6-digit TOTP code against the secret at time t,
// accepting the current, previous, and next 30-second steps. Codes that are
// not exactly 6 ASCII digits are rejected before any cryptographic work.
// Pure: no I/O, no shared state.
func ValidateCode(secret, code string, t time.Time) bool {
	if !isSixDigits(code) {
		return false
	}
	valid, _ := totp.ValidateCustom(code, secret, t, totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    Digits,
		Algorithm: Algorithm,
	})
	return valid
}

// GenerateCodeAt generates the TOTP code for a specific time.
func GenerateCodeAt(secret string, t time.Time) (string, error) {
	return totp.GenerateCode(secret, t)
}

func isSixDigits(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
