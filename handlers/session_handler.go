package handlers

import (
	"net/http"
	"time"

	"github.com/upb/role-authority/middleware"
	"github.com/upb/role-authority/utils"
	"go.uber.org/zap"
)

// TokenIssuer mints signed tokens
type TokenIssuer interface {
	Issue(subject, email string, roles []string) (string, error)
}

// LoginRequest represents the body of POST /auth/login
type LoginRequest struct {
	Subject string   `json:"subject" validate:"required,max=255"`
	Email   string   `json:"email,omitempty" validate:"omitempty,email"`
	Roles   []string `json:"roles" validate:"max=64,dive,required,max=64,rolename"`
}

// LoginResponse carries the issued token
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// SessionHandler issues and clears the auth_token session cookie
type SessionHandler struct {
	issuer TokenIssuer
	ttl    time.Duration
	secure bool
	logger *zap.Logger
}

// NewSessionHandler creates a new SessionHandler. secure marks cookies
// Secure and should be set whenever the service is served over HTTPS.
func NewSessionHandler(issuer TokenIssuer, ttl time.Duration, secure bool, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		issuer: issuer,
		ttl:    ttl,
		secure: secure,
		logger: logger,
	}
}

// HandleLogin handles POST /auth/login
// Mints a token for the requested subject and roles. Only routed outside production.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	var req LoginRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	signed, err := h.issuer.Issue(req.Subject, req.Email, req.Roles)
	if err != nil {
		h.logger.Error("failed to issue token",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to issue token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthTokenCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})

	h.logger.Info("session issued",
		zap.String("request_id", requestID),
		zap.String("sub", req.Subject),
		zap.Strings("roles", req.Roles))

	_ = utils.WriteOK(w, LoginResponse{Token: signed, ExpiresIn: int(h.ttl.Seconds())})
}

// HandleLogout handles POST /auth/logout
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthTokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
	utils.WriteNoContent(w)
}
