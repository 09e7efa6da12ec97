package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/role-authority/internal/auth"
)

var (
	// ErrMissingSubject is returned when the sub claim is empty
	ErrMissingSubject = errors.New("missing required claim: sub")

	// ErrInvalidRole is returned when a roles entry is empty
	ErrInvalidRole = errors.New("invalid role claim")
)

// Claims represents the claims carried by a role authority token
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// RoleSet returns the roles claim as an auth.RoleSet
func (c *Claims) RoleSet() auth.RoleSet {
	return auth.RolesFromStrings(c.Roles)
}

// ToSubject builds a request-scoped principal from the claims
func (c *Claims) ToSubject() *auth.Subject {
	return auth.NewSubject(c.Subject, c.Email, c.RoleSet())
}

// ValidateCustomClaims validates the non-registered claims
func ValidateCustomClaims(claims *Claims) error {
	if claims.Subject == "" {
		return ErrMissingSubject
	}
	for i, role := range claims.Roles {
		if role == "" {
			return fmt.Errorf("%w: roles[%d] is empty", ErrInvalidRole, i)
		}
	}
	return nil
}
