package twofactor

import (
	"context"

	"github.com/google/uuid"

	"github.com/jobdeck/api/internal/domain"
	"github.com/jobdeck/api/internal/pending"
	"github.com/jobdeck/api/internal/repository"
)

// Repository defines the persistence operations needed by the service.
// ConsumeBackupCode must be atomic: a spent hash may be removed by exactly
// one caller, so two concurrent logins cannot both succeed on the same code.
type Repository interface {
	Load(ctx context.Context, userID uuid.UUID) (*domain.TwoFactorState, error)
	Save(ctx context.Context, state *domain.TwoFactorState) error
	ConsumeBackupCode(ctx context.Context, userID uuid.UUID, codeHash string) (bool, error)
	Disable(ctx context.Context, userID uuid.UUID) error
}

// AuditRepository defines the audit operations needed by the service
type AuditRepository interface {
	LogEvent(ctx context.Context, event repository.AuditEvent) error
}

// PendingStore holds in-progress setups between the setup and enable steps
type PendingStore interface {
	Put(userID uuid.UUID, secret string, backupCodes []string)
	Get(userID uuid.UUID) (pending.Setup, bool)
	Remove(userID uuid.UUID)
}

// ReplayGuard rejects reuse of an already-accepted TOTP code within its
// validity window. Optional; a nil guard disables replay protection.
type ReplayGuard interface {
	MarkCodeUsed(ctx context.Context, userID, code string) (bool, error)
}

// Encryptor defines secret-at-rest encryption operations
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encrypted string) (string, error)
}
