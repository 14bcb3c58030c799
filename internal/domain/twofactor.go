package domain

import (
	"time"

	"github.com/google/uuid"
)

// TwoFactorState is the persisted two-factor posture of a user account. It is
// created implicitly (disabled) when the account exists and transitions only
// through the two-factor service; the raw TOTP secret never appears here.
type TwoFactorState struct {
	UserID           uuid.UUID `json:"user_id"`
	Enabled          bool      `json:"enabled"`
	EncryptedSecret  string    `json:"-"` // Never expose; ivHex:cipherHex
	BackupCodeHashes []string  `json:"-"` // Never expose
	UpdatedAt        time.Time `json:"updated_at"`
}

// BackupCodesRemaining reports how many one-time codes are still unspent.
func (s *TwoFactorState) BackupCodesRemaining() int {
	return len(s.BackupCodeHashes)
}
