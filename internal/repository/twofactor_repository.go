package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobdeck/api/internal/domain"
)

// TwoFactorRepository persists per-user two-factor state.
//
// ConsumeBackupCode is the one operation with a transactional contract: the
// match-and-remove of a spent code hash must be atomic so two concurrent
// logins cannot both succeed on the same backup code. The pgx implementation
// satisfies it with a single conditional DELETE whose row count is the verdict.
type TwoFactorRepository interface {
	Load(ctx context.Context, userID uuid.UUID) (*domain.TwoFactorState, error)
	Save(ctx context.Context, state *domain.TwoFactorState) error
	ConsumeBackupCode(ctx context.Context, userID uuid.UUID, codeHash string) (bool, error)
	Disable(ctx context.Context, userID uuid.UUID) error
}

type twoFactorRepository struct {
	pool *pgxpool.Pool
}

// NewTwoFactorRepository creates a new two-factor state repository
func NewTwoFactorRepository(pool *pgxpool.Pool) TwoFactorRepository {
	return &twoFactorRepository{pool: pool}
}

// Load returns the persisted state for userID. A user without a row is simply
// disabled; that is the implicit initial state, not an error.
func (r *twoFactorRepository) Load(ctx context.Context, userID uuid.UUID) (*domain.TwoFactorState, error) {
	state := &domain.TwoFactorState{UserID: userID}

	err := r.pool.QueryRow(ctx,
		`SELECT enabled, encrypted_secret, updated_at
		   FROM two_factor_credentials
		  WHERE user_id = $1`,
		userID,
	).Scan(&state.Enabled, &state.EncryptedSecret, &state.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return state, nil
		}
		return nil, fmt.Errorf("failed to load two-factor state: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT code_hash
		   FROM two_factor_backup_codes
		  WHERE user_id = $1
		  ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup code hashes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("failed to scan backup code hash: %w", err)
		}
		state.BackupCodeHashes = append(state.BackupCodeHashes, hash)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read backup code hashes: %w", err)
	}

	return state, nil
}

// Save upserts the credential row and replaces the backup-code hash set in a
// single transaction.
func (r *twoFactorRepository) Save(ctx context.Context, state *domain.TwoFactorState) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO two_factor_credentials (user_id, enabled, encrypted_secret, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id) DO UPDATE
		    SET enabled = EXCLUDED.enabled,
		        encrypted_secret = EXCLUDED.encrypted_secret,
		        updated_at = now()`,
		state.UserID, state.Enabled, state.EncryptedSecret,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert two-factor credentials: %w", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM two_factor_backup_codes WHERE user_id = $1`,
		state.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear backup codes: %w", err)
	}

	for _, hash := range state.BackupCodeHashes {
		_, err = tx.Exec(ctx,
			`INSERT INTO two_factor_backup_codes (user_id, code_hash, created_at)
			 VALUES ($1, $2, now())`,
			state.UserID, hash,
		)
		if err != nil {
			return fmt.Errorf("failed to insert backup code hash: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit two-factor state: %w", err)
	}
	return nil
}

// ConsumeBackupCode atomically removes the hash for userID. Returns true when
// this call spent the code; a concurrent consumer that lost the race gets
// false because the row is already gone.
func (r *twoFactorRepository) ConsumeBackupCode(ctx context.Context, userID uuid.UUID, codeHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM two_factor_backup_codes
		  WHERE user_id = $1 AND code_hash = $2`,
		userID, codeHash,
	)
	if err != nil {
		return false, fmt.Errorf("failed to consume backup code: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Disable clears the secret and the backup-code set and flips enabled off.
func (r *twoFactorRepository) Disable(ctx context.Context, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE two_factor_credentials
		    SET enabled = false, encrypted_secret = '', updated_at = now()
		  WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to disable two-factor: %w", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM two_factor_backup_codes WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete backup codes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit disable: %w", err)
	}
	return nil
}
