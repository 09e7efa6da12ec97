package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/upb/role-authority/internal/auth"
	"github.com/upb/role-authority/middleware"
	"github.com/upb/role-authority/models"
	"github.com/upb/role-authority/services"
	"github.com/upb/role-authority/utils"
	"go.uber.org/zap"
)

// RoleService defines the role operations used by RoleHandler
type RoleService interface {
	GetRoles(ctx context.Context, subject string) (auth.RoleSet, error)
	SetRoles(ctx context.Context, subject string, roles []string) (auth.RoleSet, error)
	DeleteRoles(ctx context.Context, subject string) error
	AuthorizeAsync(ctx context.Context, subject string, role auth.Role) <-chan auth.Result
	AuditTrail(ctx context.Context, subject string, limit int) ([]*models.AuditLog, error)
}

// SetRolesRequest represents the body of PUT /principals/{subject}/roles
type SetRolesRequest struct {
	Roles []string `json:"roles" validate:"required"`
}

// RolesResponse represents a subject's role set
type RolesResponse struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles"`
}

// AuthorizeResponse represents the outcome of a single role check
type AuthorizeResponse struct {
	Subject    string `json:"subject"`
	Role       string `json:"role"`
	Authorized bool   `json:"authorized"`
}

// RoleHandler handles role-related HTTP requests
type RoleHandler struct {
	service RoleService
	logger  *zap.Logger
}

// NewRoleHandler creates a new RoleHandler
func NewRoleHandler(service RoleService, logger *zap.Logger) *RoleHandler {
	return &RoleHandler{
		service: service,
		logger:  logger,
	}
}

// HandleMyRoles handles GET /api/v1/me/roles
func (h *RoleHandler) HandleMyRoles(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		HandleServiceError(w, services.ErrUnauthorized, h.logger)
		return
	}

	_ = utils.WriteOK(w, RolesResponse{
		Subject: subject.ID,
		Roles:   subject.Roles().Strings(),
	})
}

// HandleAuthorize handles GET /api/v1/authorize?role=R for the current principal
func (h *RoleHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	role, ok := h.roleParam(w, r)
	if !ok {
		return
	}

	subject, found := auth.SubjectFromContext(ctx)
	if !found {
		HandleServiceError(w, services.ErrUnauthorized, h.logger)
		return
	}

	results := make(chan auth.Result, 1)
	subject.IsAuthorizedAsync(ctx, role, func(res auth.Result) {
		results <- res
	})
	res := <-results
	if res.Err != nil {
		h.logger.Warn("authorization check aborted",
			zap.String("request_id", requestID),
			zap.Error(res.Err))
		HandleServiceError(w, services.NewDomainError(services.ErrorTypeTimeout, "authorization check aborted", res.Err), h.logger)
		return
	}

	_ = utils.WriteOK(w, AuthorizeResponse{
		Subject:    subject.ID,
		Role:       string(role),
		Authorized: res.Authorized,
	})
}

// HandleGetRoles handles GET /api/v1/principals/{subject}/roles
func (h *RoleHandler) HandleGetRoles(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	roles, err := h.service.GetRoles(r.Context(), subject)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, RolesResponse{Subject: subject, Roles: roles.Strings()})
}

// HandleSetRoles handles PUT /api/v1/principals/{subject}/roles
func (h *RoleHandler) HandleSetRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := chi.URLParam(r, "subject")

	var req SetRolesRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	roles, err := h.service.SetRoles(ctx, subject, req.Roles)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("stored roles replaced",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("subject", subject),
		zap.Int("count", len(roles)))

	_ = utils.WriteOK(w, RolesResponse{Subject: subject, Roles: roles.Strings()})
}

// HandleDeleteRoles handles DELETE /api/v1/principals/{subject}/roles
func (h *RoleHandler) HandleDeleteRoles(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	if err := h.service.DeleteRoles(r.Context(), subject); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// HandleAuthorizeSubject handles GET /api/v1/principals/{subject}/authorize?role=R
// by consulting the role store asynchronously
func (h *RoleHandler) HandleAuthorizeSubject(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	role, ok := h.roleParam(w, r)
	if !ok {
		return
	}

	res := <-h.service.AuthorizeAsync(r.Context(), subject, role)
	if res.Err != nil {
		HandleServiceError(w, res.Err, h.logger)
		return
	}

	_ = utils.WriteOK(w, AuthorizeResponse{
		Subject:    subject,
		Role:       string(role),
		Authorized: res.Authorized,
	})
}

// HandleAuditTrail handles GET /api/v1/principals/{subject}/audit?limit=N
func (h *RoleHandler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			_ = utils.WriteBadRequest(w, "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}

	logs, err := h.service.AuditTrail(r.Context(), subject, limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, logs)
}

func (h *RoleHandler) roleParam(w http.ResponseWriter, r *http.Request) (auth.Role, bool) {
	role := r.URL.Query().Get("role")
	if err := utils.ValidateRoleName(role); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return "", false
	}
	return auth.Role(role), true
}
