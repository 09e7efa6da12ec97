package postgres

import (
	"context"
	"fmt"

	"github.com/upb/role-authority/models"
	"github.com/upb/role-authority/repositories"
	"go.uber.org/zap"
)

// RoleRepository implements the repositories.RoleRepository interface
type RoleRepository struct {
	db     *DB
	tm     *TransactionManager
	logger *zap.Logger
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB, logger *zap.Logger) *RoleRepository {
	return &RoleRepository{
		db:     db,
		tm:     NewTransactionManager(db, logger),
		logger: logger,
	}
}

// GetBySubject retrieves the subject's assignments ordered by position
func (r *RoleRepository) GetBySubject(ctx context.Context, subject string) ([]*models.RoleAssignment, error) {
	query := `
		SELECT id, subject, role, position, created_at
		FROM role_assignments
		WHERE subject = $1
		ORDER BY position ASC
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to query role assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]*models.RoleAssignment, 0)
	for rows.Next() {
		a := &models.RoleAssignment{}
		if err := rows.Scan(&a.ID, &a.Subject, &a.Role, &a.Position, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate role assignments: %w", err)
	}

	return assignments, nil
}

// ReplaceForSubject swaps the subject's assignments for the given ones.
// It joins the transaction in ctx when present and opens its own otherwise.
func (r *RoleRepository) ReplaceForSubject(ctx context.Context, subject string, assignments []*models.RoleAssignment) error {
	if _, ok := ctx.Value(txKey{}).(*Transaction); ok {
		return r.replace(ctx, subject, assignments)
	}
	return r.tm.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		return r.replace(ctx, subject, assignments)
	})
}

func (r *RoleRepository) replace(ctx context.Context, subject string, assignments []*models.RoleAssignment) error {
	exec := executorFor(ctx, r.db)

	if _, err := exec.ExecContext(ctx, `DELETE FROM role_assignments WHERE subject = $1`, subject); err != nil {
		return fmt.Errorf("failed to clear role assignments: %w", err)
	}

	insert := `
		INSERT INTO role_assignments (id, subject, role, position, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, a := range assignments {
		if _, err := exec.ExecContext(ctx, insert, a.ID, subject, a.Role, a.Position, a.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert role assignment: %w", err)
		}
	}

	r.logger.Debug("role assignments replaced",
		zap.String("subject", subject),
		zap.Int("count", len(assignments)))
	return nil
}

// DeleteBySubject removes all of the subject's assignments
func (r *RoleRepository) DeleteBySubject(ctx context.Context, subject string) (int64, error) {
	res, err := executorFor(ctx, r.db).ExecContext(ctx, `DELETE FROM role_assignments WHERE subject = $1`, subject)
	if err != nil {
		return 0, fmt.Errorf("failed to delete role assignments: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// Ping checks database connectivity
func (r *RoleRepository) Ping(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
