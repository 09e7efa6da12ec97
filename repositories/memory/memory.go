// Package memory provides in-process repositories for development and tests.
// Data lives for the lifetime of the process.
package memory

import (
	"context"
	"sync"

	"github.com/upb/role-authority/models"
	"github.com/upb/role-authority/repositories"
)

// Store holds role assignments and audit entries behind a single lock
type Store struct {
	mu     sync.RWMutex
	roles  map[string][]models.RoleAssignment
	audits []models.AuditLog
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{roles: make(map[string][]models.RoleAssignment)}
}

// NewRepositories exposes the store through the repository interfaces
func NewRepositories(s *Store) *repositories.Repositories {
	return &repositories.Repositories{
		Roles:     &RoleRepository{s: s},
		AuditLogs: &AuditRepository{s: s},
		TxManager: &TransactionManager{},
	}
}

// RoleRepository implements repositories.RoleRepository
type RoleRepository struct {
	s *Store
}

// GetBySubject returns copies of the subject's assignments
func (r *RoleRepository) GetBySubject(_ context.Context, subject string) ([]*models.RoleAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored := r.s.roles[subject]
	out := make([]*models.RoleAssignment, len(stored))
	for i := range stored {
		a := stored[i]
		out[i] = &a
	}
	return out, nil
}

// ReplaceForSubject swaps the subject's assignments atomically
func (r *RoleRepository) ReplaceForSubject(_ context.Context, subject string, assignments []*models.RoleAssignment) error {
	next := make([]models.RoleAssignment, len(assignments))
	for i, a := range assignments {
		next[i] = *a
		next[i].Subject = subject
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(next) == 0 {
		delete(r.s.roles, subject)
		return nil
	}
	r.s.roles[subject] = next
	return nil
}

// DeleteBySubject removes the subject's assignments
func (r *RoleRepository) DeleteBySubject(_ context.Context, subject string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := int64(len(r.s.roles[subject]))
	delete(r.s.roles, subject)
	return n, nil
}

// Ping always succeeds
func (r *RoleRepository) Ping(context.Context) error {
	return nil
}

// AuditRepository implements repositories.AuditRepository
type AuditRepository struct {
	s *Store
}

// Create appends an audit entry
func (r *AuditRepository) Create(_ context.Context, log *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audits = append(r.s.audits, *log)
	return nil
}

// ListBySubject returns up to limit entries for subject, newest first
func (r *AuditRepository) ListBySubject(_ context.Context, subject string, limit int) ([]*models.AuditLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	// audits is append-only, so insertion order is chronological
	out := make([]*models.AuditLog, 0)
	for i := len(r.s.audits) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if r.s.audits[i].Subject == subject {
			log := r.s.audits[i]
			out = append(out, &log)
		}
	}
	return out, nil
}

// TransactionManager runs functions directly. Each repository call is
// individually atomic; there is no cross-call rollback.
type TransactionManager struct{}

// Begin returns a transaction whose Commit and Rollback do nothing
func (*TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return &transaction{ctx: ctx}, nil
}

// InTransaction calls fn
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, _ := tm.Begin(ctx)
	return fn(ctx, tx)
}

type transaction struct {
	ctx context.Context
}

func (*transaction) Commit() error              { return nil }
func (*transaction) Rollback() error            { return nil }
func (t *transaction) Context() context.Context { return t.ctx }
