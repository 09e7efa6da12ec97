package repositories

import (
	"context"

	"github.com/upb/role-authority/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// RoleRepository handles stored role assignments
type RoleRepository interface {
	// GetBySubject returns the subject's assignments in order.
	// A subject with no assignments yields an empty slice, not an error.
	GetBySubject(ctx context.Context, subject string) ([]*models.RoleAssignment, error)

	// ReplaceForSubject deletes all of the subject's assignments and stores
	// the given ones in their place
	ReplaceForSubject(ctx context.Context, subject string, assignments []*models.RoleAssignment) error

	// DeleteBySubject removes all of the subject's assignments and reports
	// how many were removed
	DeleteBySubject(ctx context.Context, subject string) (int64, error)

	// Ping checks that the backing store is reachable
	Ping(ctx context.Context) error
}

// AuditRepository handles the audit trail of role changes
type AuditRepository interface {
	// Create records an audit entry
	Create(ctx context.Context, log *models.AuditLog) error

	// ListBySubject returns the newest entries for a subject first
	ListBySubject(ctx context.Context, subject string, limit int) ([]*models.AuditLog, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Roles     RoleRepository
	AuditLogs AuditRepository
	TxManager TransactionManager
}
