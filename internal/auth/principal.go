package auth

import (
	"context"
	"errors"
)

// ErrNoPrincipal is returned when a request carries no principal.
var ErrNoPrincipal = errors.New("no principal in request context")

// Principal is anything that can answer an authorization query for a role.
// A returned error is a query fault, distinct from a denial.
type Principal interface {
	Authorize(ctx context.Context, role Role) (bool, error)
}

// PrincipalFunc adapts a function to the Principal interface.
type PrincipalFunc func(ctx context.Context, role Role) (bool, error)

// Authorize calls f(ctx, role).
func (f PrincipalFunc) Authorize(ctx context.Context, role Role) (bool, error) {
	return f(ctx, role)
}

// Subject is an authenticated principal together with its granted roles.
type Subject struct {
	*RoleAuthority
	ID    string
	Email string
}

// NewSubject creates a Subject holding roles.
func NewSubject(id, email string, roles RoleSet) *Subject {
	return &Subject{
		RoleAuthority: NewRoleAuthority(roles...),
		ID:            id,
		Email:         email,
	}
}

// Context keys for request-scoped data. Keep types unexported to avoid collisions.
type ctxKey string

const ctxKeyPrincipal ctxKey = "principal"

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the principal attached to ctx, or nil.
func PrincipalFromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(ctxKeyPrincipal).(Principal)
	return p
}

// SubjectFromContext returns the authenticated Subject attached to ctx, if any.
func SubjectFromContext(ctx context.Context) (*Subject, bool) {
	s, ok := ctx.Value(ctxKeyPrincipal).(*Subject)
	return s, ok && s != nil
}
