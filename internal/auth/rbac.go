package auth

import (
	"context"
	"slices"
	"sync"
)

// Role is an opaque identifier naming a permission.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleViewer Role = "viewer"
)

// RoleSet is the ordered sequence of roles granted to a principal.
// Duplicates are permitted; only membership is ever queried.
type RoleSet []Role

// Has reports whether role appears anywhere in the set.
func (s RoleSet) Has(role Role) bool {
	return slices.Contains(s, role)
}

// Strings returns the set as plain strings, preserving order.
func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

// RolesFromStrings converts raw role names into a RoleSet.
func RolesFromStrings(values []string) RoleSet {
	out := make(RoleSet, len(values))
	for i, v := range values {
		out[i] = Role(v)
	}
	return out
}

// RoleAuthority holds the roles granted to one principal and answers
// membership queries. The zero value has no roles.
type RoleAuthority struct {
	mu    sync.RWMutex
	roles RoleSet
}

// NewRoleAuthority creates a RoleAuthority holding a copy of roles.
func NewRoleAuthority(roles ...Role) *RoleAuthority {
	a := &RoleAuthority{}
	if roles != nil {
		a.SetRoles(roles)
	}
	return a
}

// SetRoles replaces the current role set with a copy of roles.
// Nothing from the previous set survives.
func (a *RoleAuthority) SetRoles(roles []Role) {
	next := slices.Clone(roles)

	a.mu.Lock()
	a.roles = next
	a.mu.Unlock()
}

// Roles returns a copy of the current role set.
func (a *RoleAuthority) Roles() RoleSet {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.roles)
}

// IsAuthorized reports whether needed is in the current role set.
// An unset role set grants nothing.
func (a *RoleAuthority) IsAuthorized(needed Role) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.roles.Has(needed)
}

// Authorize implements Principal. It never returns an error.
func (a *RoleAuthority) Authorize(_ context.Context, role Role) (bool, error) {
	return a.IsAuthorized(role), nil
}

// IsAuthorizedAsync evaluates the membership check on its own goroutine and
// invokes cb exactly once with the outcome. The role set is captured when
// IsAuthorizedAsync is called, so a later SetRoles does not change the
// answer. If ctx is done before the check runs, cb receives ctx.Err().
func (a *RoleAuthority) IsAuthorizedAsync(ctx context.Context, needed Role, cb func(Result)) {
	if cb == nil {
		return
	}
	snapshot := a.Roles()
	go func() {
		if err := ctx.Err(); err != nil {
			cb(Result{Err: err})
			return
		}
		cb(Result{Authorized: snapshot.Has(needed)})
	}()
}
