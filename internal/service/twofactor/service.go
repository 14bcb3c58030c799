package twofactor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jobdeck/api/internal/config"
	"github.com/jobdeck/api/internal/domain"
	"github.com/jobdeck/api/internal/infrastructure/backupcode"
	"github.com/jobdeck/api/internal/infrastructure/qrcode"
	totpGen "github.com/jobdeck/api/internal/infrastructure/totp"
	"github.com/jobdeck/api/internal/pkg/apperror"
	"github.com/jobdeck/api/internal/pkg/clock"
	"github.com/jobdeck/api/internal/pkg/crypto"
	"github.com/jobdeck/api/internal/repository"
)

// qrCodeSize is the pixel size of the provisioning QR image
const qrCodeSize = 256

// Service owns the two-factor state machine. Persisted state knows two
// positions, disabled and enabled; an in-progress setup is an ephemeral
// overlay in the pending store, never written to the repository until the
// user confirms it with a live code.
type Service struct {
	cfg       config.TwoFactorConfig
	encryptor Encryptor
	repo      Repository
	auditRepo AuditRepository
	pending   PendingStore
	replay    ReplayGuard
	clock     clock.Clock
}

// NewService creates a two-factor service. The dedicated encryption key is
// mandatory; a missing key is a fatal configuration error, not something to
// paper over with another application secret.
func NewService(cfg config.TwoFactorConfig, repo Repository, auditRepo AuditRepository, pendingStore PendingStore, replay ReplayGuard) (*Service, error) {
	cipher, err := crypto.NewSecretCipher([]byte(cfg.EncryptionKey))
	if err != nil {
		if errors.Is(err, crypto.ErrMissingMasterKey) {
			return nil, apperror.ConfigError("two-factor encryption key is not configured")
		}
		return nil, apperror.InternalError("failed to initialize secret cipher", "Contact the administrator").WithError(err)
	}
	return &Service{
		cfg:       cfg,
		encryptor: cipher,
		repo:      repo,
		auditRepo: auditRepo,
		pending:   pendingStore,
		replay:    replay,
		clock:     clock.System{},
	}, nil
}

// NewServiceWithDeps creates a two-factor service with injected dependencies (for testing)
func NewServiceWithDeps(cfg config.TwoFactorConfig, encryptor Encryptor, repo Repository, auditRepo AuditRepository, pendingStore PendingStore, replay ReplayGuard, clk clock.Clock) *Service {
	return &Service{
		cfg:       cfg,
		encryptor: encryptor,
		repo:      repo,
		auditRepo: auditRepo,
		pending:   pendingStore,
		replay:    replay,
		clock:     clk,
	}
}

// SetupResponse carries everything the user needs to finish enrollment.
// The backup codes and secret are shown exactly once; nothing here is persisted.
type SetupResponse struct {
	Secret      string   `json:"secret"`
	OTPAuthURL  string   `json:"otpauth_url"`
	QRCodeData  string   `json:"qrcode_data"`
	BackupCodes []string `json:"backup_codes"`
}

// VerifyResult reports a successful login verification
type VerifyResult struct {
	UsedBackupCode       bool `json:"used_backup_code"`
	BackupCodesRemaining int  `json:"backup_codes_remaining"`
}

// Setup starts enrollment: generates a secret, backup codes and QR payload,
// and parks them in the pending store. A repeated call replaces the previous
// pending setup; a call while already enabled is rejected.
func (s *Service) Setup(ctx context.Context, userID uuid.UUID, accountLabel, clientIP, userAgent string) (*SetupResponse, error) {
	state, err := s.repo.Load(ctx, userID)
	if err != nil {
		slog.Error("Failed to load two-factor state", slog.Any("error", err), slog.String("user_id", userID.String()))
		return nil, apperror.InternalError("failed to load two-factor state", "Try again later").WithError(err)
	}
	if state.Enabled {
		s.logEvent(ctx, "twofa_setup_rejected", userID, clientIP, userAgent, false, "already_enabled", nil)
		return nil, apperror.AlreadyEnabledError()
	}

	generated, err := totpGen.Generate(s.cfg.Issuer, accountLabel)
	if err != nil {
		slog.Error("Failed to generate TOTP secret", slog.Any("error", err))
		return nil, apperror.InternalError("failed to generate TOTP secret", "Try again later").WithError(err)
	}

	codes, err := backupcode.Generate(backupcode.DefaultCount)
	if err != nil {
		slog.Error("Failed to generate backup codes", slog.Any("error", err))
		return nil, apperror.InternalError("failed to generate backup codes", "Try again later").WithError(err)
	}

	qrData, err := qrcode.DataURL(generated.OTPAuthURL, qrCodeSize)
	if err != nil {
		slog.Error("Failed to render QR code", slog.Any("error", err))
		return nil, apperror.InternalError("failed to render QR code", "Try again later").WithError(err)
	}

	s.pending.Put(userID, generated.Secret, codes)

	setupInitiatedTotal.Inc()
	s.logEvent(ctx, "twofa_setup_initiated", userID, clientIP, userAgent, true, "", nil)

	return &SetupResponse{
		Secret:      generated.Secret,
		OTPAuthURL:  generated.OTPAuthURL,
		QRCodeData:  qrData,
		BackupCodes: codes,
	}, nil
}

// Enable confirms a pending setup with a live TOTP code. Only then is the
// secret encrypted and the state persisted; a failed attempt leaves the
// pending entry intact until its TTL.
func (s *Service) Enable(ctx context.Context, userID uuid.UUID, code, clientIP, userAgent string) error {
	setup, ok := s.pending.Get(userID)
	if !ok {
		enableTotal.WithLabelValues("expired").Inc()
		s.logEvent(ctx, "twofa_enable_failed", userID, clientIP, userAgent, false, "setup_expired", nil)
		return apperror.SetupExpiredError()
	}

	if replayed, err := s.markCodeUsed(ctx, userID, code); err == nil && replayed {
		replayRejectedTotal.Inc()
		s.logEvent(ctx, "twofa_enable_failed", userID, clientIP, userAgent, false, "replay", nil)
		return apperror.InvalidCodeError()
	}

	if !totpGen.ValidateCode(setup.Secret, code, s.clock.Now()) {
		enableTotal.WithLabelValues("invalid_code").Inc()
		s.logEvent(ctx, "twofa_enable_failed", userID, clientIP, userAgent, false, "invalid_code", nil)
		return apperror.InvalidCodeError()
	}

	encryptedSecret, err := s.encryptor.Encrypt(setup.Secret)
	if err != nil {
		slog.Error("Failed to encrypt TOTP secret", slog.Any("error", err))
		return apperror.InternalError("failed to encrypt secret", "Try again later").WithError(err)
	}

	hashes := make([]string, len(setup.BackupCodes))
	for i, c := range setup.BackupCodes {
		hashes[i] = backupcode.Hash(c)
	}

	state := &domain.TwoFactorState{
		UserID:           userID,
		Enabled:          true,
		EncryptedSecret:  encryptedSecret,
		BackupCodeHashes: hashes,
	}
	if err := s.repo.Save(ctx, state); err != nil {
		slog.Error("Failed to persist two-factor state", slog.Any("error", err), slog.String("user_id", userID.String()))
		return apperror.InternalError("failed to enable two-factor", "Try again later").WithError(err)
	}

	s.pending.Remove(userID)

	enableTotal.WithLabelValues("success").Inc()
	s.logEvent(ctx, "twofa_enabled", userID, clientIP, userAgent, true, "", nil)
	return nil
}

// VerifyLogin checks a second-factor code at login: TOTP first, then the
// one-time backup codes. A matched backup code is consumed atomically so it
// can never verify twice. Both mechanisms failing yields one generic error.
func (s *Service) VerifyLogin(ctx context.Context, userID uuid.UUID, code, clientIP, userAgent string) (*VerifyResult, error) {
	state, err := s.loadEnabled(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.verifyAndConsume(ctx, state, code, clientIP, userAgent)
}

// Disable turns two-factor off after a verifyLogin-equivalent check (TOTP or
// backup code) and clears the secret and the backup-code set.
func (s *Service) Disable(ctx context.Context, userID uuid.UUID, code, clientIP, userAgent string) error {
	state, err := s.loadEnabled(ctx, userID)
	if err != nil {
		return err
	}

	if _, err := s.verifyAndConsume(ctx, state, code, clientIP, userAgent); err != nil {
		s.logEvent(ctx, "twofa_disable_failed", userID, clientIP, userAgent, false, "invalid_code", nil)
		return err
	}

	if err := s.repo.Disable(ctx, userID); err != nil {
		slog.Error("Failed to disable two-factor", slog.Any("error", err), slog.String("user_id", userID.String()))
		return apperror.InternalError("failed to disable two-factor", "Try again later").WithError(err)
	}

	disableTotal.Inc()
	s.logEvent(ctx, "twofa_disabled", userID, clientIP, userAgent, true, "", nil)
	return nil
}

// RegenerateBackupCodes replaces the whole backup-code set after a live TOTP
// check. Backup codes are not accepted here: regeneration invalidates the old
// set, and a stolen backup code must not be able to mint fresh ones.
func (s *Service) RegenerateBackupCodes(ctx context.Context, userID uuid.UUID, code, clientIP, userAgent string) ([]string, error) {
	state, err := s.loadEnabled(ctx, userID)
	if err != nil {
		return nil, err
	}

	secret, err := s.decryptSecret(state)
	if err != nil {
		return nil, err
	}

	if !totpGen.ValidateCode(secret, code, s.clock.Now()) {
		s.logEvent(ctx, "twofa_regenerate_failed", userID, clientIP, userAgent, false, "invalid_code", nil)
		return nil, apperror.InvalidCodeError()
	}
	if replayed, err := s.markCodeUsed(ctx, userID, code); err == nil && replayed {
		replayRejectedTotal.Inc()
		s.logEvent(ctx, "twofa_regenerate_failed", userID, clientIP, userAgent, false, "replay", nil)
		return nil, apperror.InvalidCodeError()
	}

	codes, err := backupcode.Generate(backupcode.DefaultCount)
	if err != nil {
		slog.Error("Failed to generate backup codes", slog.Any("error", err))
		return nil, apperror.InternalError("failed to generate backup codes", "Try again later").WithError(err)
	}

	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = backupcode.Hash(c)
	}
	state.BackupCodeHashes = hashes
	if err := s.repo.Save(ctx, state); err != nil {
		slog.Error("Failed to persist regenerated backup codes", slog.Any("error", err), slog.String("user_id", userID.String()))
		return nil, apperror.InternalError("failed to save backup codes", "Try again later").WithError(err)
	}

	regenerateTotal.Inc()
	s.logEvent(ctx, "twofa_backup_codes_regenerated", userID, clientIP, userAgent, true, "",
		map[string]interface{}{"code_count": len(codes)})
	return codes, nil
}

// loadEnabled loads persisted state and requires two-factor to be on.
func (s *Service) loadEnabled(ctx context.Context, userID uuid.UUID) (*domain.TwoFactorState, error) {
	state, err := s.repo.Load(ctx, userID)
	if err != nil {
		slog.Error("Failed to load two-factor state", slog.Any("error", err), slog.String("user_id", userID.String()))
		return nil, apperror.InternalError("failed to load two-factor state", "Try again later").WithError(err)
	}
	if !state.Enabled {
		return nil, apperror.NotEnabledError()
	}
	return state, nil
}

// verifyAndConsume runs the TOTP-then-backup check against enabled state.
func (s *Service) verifyAndConsume(ctx context.Context, state *domain.TwoFactorState, code, clientIP, userAgent string) (*VerifyResult, error) {
	userID := state.UserID

	secret, err := s.decryptSecret(state)
	if err != nil {
		return nil, err
	}

	if totpGen.ValidateCode(secret, code, s.clock.Now()) {
		if replayed, err := s.markCodeUsed(ctx, userID, code); err == nil && replayed {
			replayRejectedTotal.Inc()
			verifyTotal.WithLabelValues("totp", "failure").Inc()
			s.logEvent(ctx, "twofa_verify_failed", userID, clientIP, userAgent, false, "replay", nil)
			return nil, apperror.InvalidCodeError()
		}
		verifyTotal.WithLabelValues("totp", "success").Inc()
		s.logEvent(ctx, "twofa_verify_success", userID, clientIP, userAgent, true, "", nil)
		return &VerifyResult{
			UsedBackupCode:       false,
			BackupCodesRemaining: state.BackupCodesRemaining(),
		}, nil
	}

	if hash, ok := backupcode.MatchingHash(code, state.BackupCodeHashes); ok {
		consumed, err := s.repo.ConsumeBackupCode(ctx, userID, hash)
		if err != nil {
			slog.Error("Failed to consume backup code", slog.Any("error", err), slog.String("user_id", userID.String()))
			return nil, apperror.InternalError("failed to consume backup code", "Try again later").WithError(err)
		}
		if !consumed {
			// Lost the race: a concurrent login already spent this code.
			verifyTotal.WithLabelValues("backup", "failure").Inc()
			s.logEvent(ctx, "twofa_verify_failed", userID, clientIP, userAgent, false, "code_already_spent", nil)
			return nil, apperror.InvalidCodeError()
		}
		remaining := state.BackupCodesRemaining() - 1
		verifyTotal.WithLabelValues("backup", "success").Inc()
		s.logEvent(ctx, "twofa_backup_code_used", userID, clientIP, userAgent, true, "",
			map[string]interface{}{"codes_remaining": remaining})
		return &VerifyResult{
			UsedBackupCode:       true,
			BackupCodesRemaining: remaining,
		}, nil
	}

	verifyTotal.WithLabelValues("none", "failure").Inc()
	s.logEvent(ctx, "twofa_verify_failed", userID, clientIP, userAgent, false, "invalid_code", nil)
	return nil, apperror.InvalidCodeError()
}

func (s *Service) decryptSecret(state *domain.TwoFactorState) (string, error) {
	secret, err := s.encryptor.Decrypt(state.EncryptedSecret)
	if err != nil {
		if errors.Is(err, crypto.ErrMissingMasterKey) {
			return "", apperror.ConfigError("two-factor encryption key is not configured")
		}
		// Corrupt stored ciphertext: an internal error, never retried. The
		// ciphertext itself stays out of the log.
		slog.Error("Failed to decrypt stored TOTP secret",
			slog.Any("error", err),
			slog.String("user_id", state.UserID.String()))
		return "", apperror.InternalError("failed to decrypt stored secret", "Contact the administrator").WithError(err)
	}
	return secret, nil
}

// markCodeUsed consults the replay guard. Guard errors are logged and treated
// as first use: a degraded Redis must not lock every user out.
func (s *Service) markCodeUsed(ctx context.Context, userID uuid.UUID, code string) (replayed bool, err error) {
	if s.replay == nil {
		return false, nil
	}
	isNew, err := s.replay.MarkCodeUsed(ctx, userID.String(), code)
	if err != nil {
		slog.Warn("Replay guard unavailable", slog.Any("error", err))
		return false, err
	}
	return !isNew, nil
}

func (s *Service) logEvent(ctx context.Context, eventType string, userID uuid.UUID, clientIP, userAgent string, success bool, failureReason string, metadata map[string]interface{}) {
	if s.auditRepo == nil {
		return
	}
	err := s.auditRepo.LogEvent(ctx, repository.AuditEvent{
		EventType:     eventType,
		ActorID:       userID.String(),
		ClientIP:      clientIP,
		UserAgent:     userAgent,
		Success:       success,
		FailureReason: failureReason,
		Metadata:      metadata,
	})
	if err != nil {
		slog.Error("Failed to log audit event", slog.String("event_type", eventType), slog.Any("error", err))
	}
}
