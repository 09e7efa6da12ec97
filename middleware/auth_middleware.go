package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/upb/role-authority/internal/auth"
	"github.com/upb/role-authority/services"
	"github.com/upb/role-authority/token"
	"github.com/upb/role-authority/utils"
	"go.uber.org/zap"
)

// TokenValidator defines the interface for validating JWT tokens
type TokenValidator interface {
	// ValidateToken validates a JWT token and returns claims
	ValidateToken(ctx context.Context, token string) (*token.Claims, error)
}

// RoleSource supplies roles stored for a subject outside the token
type RoleSource interface {
	GetRoles(ctx context.Context, subject string) (auth.RoleSet, error)
}

// AuthMiddleware authenticates requests and attaches a request-scoped
// principal to the context
type AuthMiddleware struct {
	validator TokenValidator
	roles     RoleSource
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. roles may be nil, in
// which case a principal holds only the roles from its token.
func NewAuthMiddleware(validator TokenValidator, roles RoleSource, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		roles:     roles,
		logger:    logger,
	}
}

// AuthTokenCookieName is the cookie carrying the JWT when no Authorization header is sent
const AuthTokenCookieName = "auth_token"

// authMode selects how a missing or rejected token is answered
type authMode int

const (
	// authOptional passes tokenless requests through; bad tokens get 401
	authOptional authMode = iota
	// authRequired answers 401 to tokenless requests and bad tokens
	authRequired
	// authPage passes tokenless requests and bad tokens through with no principal
	authPage
)

// Authenticate attaches a principal when the request carries a valid token.
// Requests without a token pass through with no principal.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return m.authenticate(next, authOptional)
}

// AuthenticatePage is Authenticate for HTML pages: an invalid or expired
// token is logged and the request continues with no principal, so the page
// handler still chooses the view.
func (m *AuthMiddleware) AuthenticatePage(next http.Handler) http.Handler {
	return m.authenticate(next, authPage)
}

// RequireAuth is a middleware that requires a valid JWT token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return m.authenticate(next, authRequired)
}

func (m *AuthMiddleware) authenticate(next http.Handler, mode authMode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		raw := extractToken(r)
		if raw == "" {
			if mode != authRequired {
				next.ServeHTTP(w, r)
				return
			}
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.validator.ValidateToken(ctx, raw)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			if mode == authPage {
				next.ServeHTTP(w, r)
				return
			}
			message := "Invalid or expired token"
			if errors.Is(err, token.ErrTokenExpired) {
				message = "Token expired"
			}
			_ = utils.WriteUnauthorized(w, message)
			return
		}

		subject := claims.ToSubject()
		if m.roles != nil {
			stored, err := m.roles.GetRoles(ctx, claims.Subject)
			if err != nil {
				// the principal keeps its token roles; stored roles only add
				m.logger.Warn("stored role lookup failed",
					zap.String("request_id", requestID),
					zap.String("sub", claims.Subject),
					zap.Error(err))
			} else {
				subject.SetRoles(mergeRoles(subject.Roles(), stored))
			}
		}

		ctx = WithClaims(ctx, claims)
		ctx = auth.WithPrincipal(ctx, subject)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", claims.Subject),
			zap.Strings("roles", subject.Roles().Strings()))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole is a middleware that requires a specific role.
// It must run after Authenticate or RequireAuth.
func (m *AuthMiddleware) RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			principal := auth.PrincipalFromContext(ctx)
			if principal == nil {
				m.logger.Warn("principal not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, services.ErrUnauthorized.Error())
				return
			}

			ok, err := auth.Check(ctx, principal, role)
			if err != nil {
				m.logger.Error("role check failed",
					zap.String("request_id", requestID),
					zap.String("required_role", string(role)),
					zap.Error(err))
				_ = utils.WriteInternalServerError(w, "Failed to check permissions")
				return
			}
			if !ok {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("required_role", string(role)))
				_ = utils.WriteForbidden(w, services.ErrInsufficientPermissions.Error())
				return
			}

			m.logger.Debug("role check passed",
				zap.String("request_id", requestID),
				zap.String("required_role", string(role)))

			next.ServeHTTP(w, r)
		})
	}
}

// mergeRoles appends the stored roles missing from base, keeping order
func mergeRoles(base, stored auth.RoleSet) auth.RoleSet {
	return auth.RoleSet(lo.Uniq(append(slices.Clone(base), stored...)))
}

// extractToken extracts JWT from the Authorization header ("Bearer TOKEN") or
// the "auth_token" cookie. The header takes precedence when both are present.
func extractToken(r *http.Request) string {
	if bearer := extractBearerToken(r); bearer != "" {
		return bearer
	}
	if cookie, err := r.Cookie(AuthTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
