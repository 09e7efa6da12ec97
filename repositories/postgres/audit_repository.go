package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/role-authority/models"
	"go.uber.org/zap"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// Create inserts a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, actor, action, subject, details, request_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		log.ID,
		log.Actor,
		log.Action,
		log.Subject,
		nullableJSON(log.Details),
		log.RequestID,
		log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted",
		zap.String("id", log.ID.String()),
		zap.String("action", string(log.Action)))
	return nil
}

// ListBySubject returns up to limit entries for subject, newest first
func (r *AuditRepository) ListBySubject(ctx context.Context, subject string, limit int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, actor, action, subject, details, request_id, timestamp
		FROM audit_logs
		WHERE subject = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		log := &models.AuditLog{}
		var details []byte
		var requestID sql.NullString
		if err := rows.Scan(&log.ID, &log.Actor, &log.Action, &log.Subject, &details, &requestID, &log.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		log.Details = details
		log.RequestID = requestID.String
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit logs: %w", err)
	}

	return logs, nil
}

// nullableJSON stores empty details as SQL NULL
func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
