package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/role-authority/app"
	"github.com/upb/role-authority/handlers"
	"github.com/upb/role-authority/internal/auth"
	appmw "github.com/upb/role-authority/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	cfg := deps.Config

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmw.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.RoleService, deps.Logger)
	index := handlers.NewIndexHandler(deps.Renderer, deps.Logger)
	roles := handlers.NewRoleHandler(deps.RoleService, deps.Logger)
	session := handlers.NewSessionHandler(deps.TokenIssuer, cfg.Auth.TokenTTL, cfg.IsProduction(), deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	// Landing page; without a usable token there is no principal and the error view renders
	r.With(deps.AuthMiddleware.AuthenticatePage).Get("/", index.ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		// Signs tokens for any subject; opt-in and refused by config in production
		if cfg.Auth.DevLogin {
			r.Post("/login", session.HandleLogin)
		}
		r.Post("/logout", session.HandleLogout)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)

		r.Get("/me/roles", roles.HandleMyRoles)
		r.Get("/authorize", roles.HandleAuthorize)

		// Role administration (require admin role)
		r.Route("/principals/{subject}", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireRole(auth.RoleAdmin))
			r.Get("/roles", roles.HandleGetRoles)
			r.Put("/roles", roles.HandleSetRoles)
			r.Delete("/roles", roles.HandleDeleteRoles)
			r.Get("/authorize", roles.HandleAuthorizeSubject)
			r.Get("/audit", roles.HandleAuditTrail)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
