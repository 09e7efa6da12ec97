package handlers

import (
	"net/http"

	"github.com/upb/role-authority/internal/auth"
	"github.com/upb/role-authority/middleware"
	"github.com/upb/role-authority/views"
	"go.uber.org/zap"
)

// IndexHandler chooses exactly one of the index, notAuth and error views
// based on whether the request's principal holds the admin role
type IndexHandler struct {
	renderer views.Renderer
	logger   *zap.Logger
}

// NewIndexHandler creates a new IndexHandler
func NewIndexHandler(renderer views.Renderer, logger *zap.Logger) *IndexHandler {
	return &IndexHandler{
		renderer: renderer,
		logger:   logger,
	}
}

// ServeHTTP handles GET /
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	data := views.PageData{RequestID: requestID}
	view, status := views.Error, http.StatusInternalServerError

	ok, err := auth.Check(ctx, auth.PrincipalFromContext(ctx), auth.RoleAdmin)
	switch {
	case err != nil:
		h.logger.Warn("authorization query failed",
			zap.String("request_id", requestID),
			zap.Error(err))
	case ok:
		view, status = views.Index, http.StatusOK
		if subject, found := auth.SubjectFromContext(ctx); found {
			data.Subject = subject.ID
			data.Roles = subject.Roles().Strings()
		}
	default:
		view, status = views.NotAuth, http.StatusForbidden
	}

	if err := h.renderer.Render(w, status, view, data); err != nil {
		h.logger.Error("failed to render view",
			zap.String("request_id", requestID),
			zap.String("view", view),
			zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.logger.Debug("view rendered",
		zap.String("request_id", requestID),
		zap.String("view", view))
}
