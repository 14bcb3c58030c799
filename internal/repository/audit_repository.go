package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEvent records a security-relevant action. Payloads never contain
// secret material: codes, secrets and hashes stay out of metadata.
type AuditEvent struct {
	EventType     string
	ActorID       string
	ClientIP      string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]interface{}
}

// AuditRepository defines audit logging operations
type AuditRepository interface {
	LogEvent(ctx context.Context, event AuditEvent) error
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) LogEvent(ctx context.Context, event AuditEvent) error {
	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_events
		    (event_type, actor_id, client_ip, user_agent, success, failure_reason, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		event.EventType, event.ActorID, event.ClientIP, event.UserAgent,
		event.Success, event.FailureReason, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}
