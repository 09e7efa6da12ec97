package roles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/upb/role-authority/internal/auth"
	"github.com/upb/role-authority/internal/observability"
	"github.com/upb/role-authority/models"
	"github.com/upb/role-authority/repositories"
	"github.com/upb/role-authority/services"
	"github.com/upb/role-authority/utils"
	"go.uber.org/zap"
)

const (
	// MaxRolesPerSubject bounds the size of a stored role set
	MaxRolesPerSubject = 64

	// DefaultAuditLimit is used when AuditTrail is called without a limit
	DefaultAuditLimit = 50

	// MaxAuditLimit caps a single AuditTrail page
	MaxAuditLimit = 500

	systemActor = "system"
)

// SetRolesRequest is the validated input of SetRoles
type SetRolesRequest struct {
	Subject string   `json:"subject" validate:"required,max=255"`
	Roles   []string `json:"roles" validate:"max=64,dive,required,max=64,rolename"`
}

// Service manages stored role sets and answers store-backed
// authorization queries
type Service struct {
	roles         repositories.RoleRepository
	audits        repositories.AuditRepository
	txManager     repositories.TransactionManager
	cache         *RoleCache
	lookupTimeout time.Duration
	logger        *zap.Logger
}

// NewService creates a new role Service. cache may be nil.
func NewService(repos *repositories.Repositories, cache *RoleCache, lookupTimeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		roles:         repos.Roles,
		audits:        repos.AuditLogs,
		txManager:     repos.TxManager,
		cache:         cache,
		lookupTimeout: lookupTimeout,
		logger:        logger,
	}
}

// GetRoles returns the stored role set of subject. A subject with nothing
// stored has an empty set.
func (s *Service) GetRoles(ctx context.Context, subject string) (auth.RoleSet, error) {
	if subject == "" {
		return nil, services.ErrInvalidSubject
	}

	var epoch uint64
	if s.cache != nil {
		if roles, ok := s.cache.Get(subject); ok {
			return roles, nil
		}
		epoch = s.cache.Epoch()
	}

	assignments, err := s.roles.GetBySubject(ctx, subject)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, lookupError(ctxErr)
		}
		return nil, services.WrapStoreFailure("failed to load roles", err)
	}

	roles := auth.RolesFromStrings(models.RolesOf(assignments))
	if s.cache != nil {
		s.cache.SetIfUnchanged(subject, roles, epoch)
	}
	return roles, nil
}

// SetRoles replaces the stored role set of subject. Duplicates are dropped
// keeping the first occurrence; an empty list clears the set.
func (s *Service) SetRoles(ctx context.Context, subject string, roles []string) (auth.RoleSet, error) {
	req := SetRolesRequest{Subject: subject, Roles: roles}
	if req.Roles == nil {
		req.Roles = []string{}
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return nil, toDomainValidation(err)
	}

	normalized := lo.Uniq(req.Roles)
	err := s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		if err := s.roles.ReplaceForSubject(txCtx, subject, models.NewRoleAssignments(subject, normalized)); err != nil {
			return fmt.Errorf("failed to replace roles: %w", err)
		}
		return s.recordAudit(txCtx, models.AuditActionRolesReplaced, subject, map[string]interface{}{
			"roles": normalized,
		})
	})
	s.invalidate(subject)
	if err != nil {
		return nil, services.WrapStoreFailure("failed to store roles", err)
	}

	observability.FromContext(ctx, s.logger).Info("roles replaced",
		zap.String("subject", subject),
		zap.Strings("roles", normalized),
		zap.String("actor", actorFrom(ctx)))

	return auth.RolesFromStrings(normalized), nil
}

// DeleteRoles removes every stored role of subject
func (s *Service) DeleteRoles(ctx context.Context, subject string) error {
	if subject == "" {
		return services.ErrInvalidSubject
	}

	var removed int64
	err := s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		n, err := s.roles.DeleteBySubject(txCtx, subject)
		if err != nil {
			return fmt.Errorf("failed to delete roles: %w", err)
		}
		removed = n
		if n == 0 {
			return nil
		}
		return s.recordAudit(txCtx, models.AuditActionRolesDeleted, subject, map[string]interface{}{
			"removed": n,
		})
	})
	s.invalidate(subject)
	if err != nil {
		return services.WrapStoreFailure("failed to delete roles", err)
	}
	if removed == 0 {
		return services.ErrSubjectNotFound
	}

	observability.FromContext(ctx, s.logger).Info("roles deleted",
		zap.String("subject", subject),
		zap.Int64("removed", removed),
		zap.String("actor", actorFrom(ctx)))
	return nil
}

// Principal returns a principal whose queries look up subject's stored
// roles. Lookups are bounded by the service's lookup timeout, and a store
// failure is reported as a query fault rather than a denial.
func (s *Service) Principal(subject string) auth.Principal {
	return auth.PrincipalFunc(func(ctx context.Context, role auth.Role) (bool, error) {
		lookupCtx, cancel := s.withLookupTimeout(ctx)
		defer cancel()

		if err := lookupCtx.Err(); err != nil {
			return false, lookupError(err)
		}
		roles, err := s.GetRoles(lookupCtx, subject)
		if err != nil {
			return false, err
		}
		return roles.Has(role), nil
	})
}

// AuthorizeAsync checks subject against role on a separate goroutine. The
// returned channel yields exactly one Result and is then closed.
func (s *Service) AuthorizeAsync(ctx context.Context, subject string, role auth.Role) <-chan auth.Result {
	lookupCtx, cancel := s.withLookupTimeout(ctx)
	out := make(chan auth.Result, 1)

	go func() {
		defer close(out)
		defer cancel()

		res := <-auth.CheckAsync(lookupCtx, s.Principal(subject), role)
		if res.Err != nil && services.GetErrorType(res.Err) == "" && isContextError(res.Err) {
			res.Err = lookupError(res.Err)
		}
		out <- res
	}()

	return out
}

// AuditTrail lists the newest audit entries for subject
func (s *Service) AuditTrail(ctx context.Context, subject string, limit int) ([]*models.AuditLog, error) {
	if subject == "" {
		return nil, services.ErrInvalidSubject
	}
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if limit > MaxAuditLimit {
		limit = MaxAuditLimit
	}

	logs, err := s.audits.ListBySubject(ctx, subject, limit)
	if err != nil {
		return nil, services.WrapStoreFailure("failed to list audit logs", err)
	}
	return logs, nil
}

// Ping checks that the role store is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.roles.Ping(ctx)
}

// CacheStats reports role cache statistics; zero when caching is disabled
func (s *Service) CacheStats() CacheStats {
	if s.cache == nil {
		return CacheStats{}
	}
	return s.cache.Stats()
}

func (s *Service) recordAudit(ctx context.Context, action models.AuditAction, subject string, details map[string]interface{}) error {
	entry := models.NewAuditLog(actorFrom(ctx), action, subject)
	entry.RequestID = observability.RequestID(ctx)
	if err := entry.SetDetails(details); err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	if err := s.audits.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *Service) invalidate(subject string) {
	if s.cache != nil {
		s.cache.Invalidate(subject)
	}
}

func (s *Service) withLookupTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.lookupTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.lookupTimeout)
}

func actorFrom(ctx context.Context) string {
	if subject, ok := auth.SubjectFromContext(ctx); ok && subject.ID != "" {
		return subject.ID
	}
	return systemActor
}

func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func lookupError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.WrapLookupTimeout(err)
	}
	return services.WrapInternal("role lookup canceled", err)
}

func toDomainValidation(err error) error {
	fields := utils.GetValidationFields(err)
	if fields == nil {
		return fmt.Errorf("%w: %w", services.ErrInvalidInput, err)
	}
	derr := services.NewValidationError("invalid role assignment", err)
	for k, v := range fields {
		derr.WithDetail(k, v)
	}
	return derr
}
