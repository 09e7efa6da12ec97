// Package auth provides the role-based authorization primitives for the
// role authority service.
//
// This package implements:
//   - Role sets with wholesale replacement semantics
//   - RoleAuthority membership checks, synchronous and asynchronous
//   - The Principal capability consumed by request handlers
//   - Request-scoped principal propagation through context.Context
//
// Role state is never process-wide: a RoleAuthority is built per request
// and carried in the request context.
package auth
