package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/role-authority/config"
	"github.com/upb/role-authority/middleware"
	"github.com/upb/role-authority/repositories"
	"github.com/upb/role-authority/repositories/memory"
	"github.com/upb/role-authority/repositories/postgres"
	"github.com/upb/role-authority/services/roles"
	"github.com/upb/role-authority/token"
	"github.com/upb/role-authority/views"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// RepoFactory and DB are nil when roles are kept in memory
	RepoFactory *postgres.RepositoryFactory
	DB          *postgres.DB

	// Repositories
	Repositories *repositories.Repositories

	// Services
	RoleCache   *roles.RoleCache
	RoleService *roles.Service

	// Auth
	TokenValidator *token.Validator
	TokenIssuer    *token.Issuer
	AuthMiddleware *middleware.AuthMiddleware

	// Views
	Renderer views.Renderer

	stopCleanup chan struct{}
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize role store: %w", err)
	}

	if err := deps.wire(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("store", cfg.Store),
		zap.String("environment", cfg.Environment))
	return deps, nil
}

// NewDependenciesWithRepositories wires the application on top of repos
// instead of opening a store
func NewDependenciesWithRepositories(cfg *config.Config, repos *repositories.Repositories, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:       cfg,
		Logger:       logger,
		Repositories: repos,
	}
	if err := deps.wire(cfg); err != nil {
		return nil, err
	}
	return deps, nil
}

// initStore opens the configured role store
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Store {
	case config.StoreMemory:
		d.Repositories = memory.NewRepositories(memory.NewStore())
		d.Logger.Warn("using in-memory role store, stored roles are lost on restart")
		return nil

	case config.StorePostgres:
		factory, err := postgres.NewRepositoryFactory(cfg.Database, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		d.DB = factory.GetDB()

		if err := d.DB.InitSchema(ctx); err != nil {
			_ = factory.Close()
			return fmt.Errorf("failed to initialize schema: %w", err)
		}

		d.Repositories = factory.NewRepositories()
		d.Logger.Info("repositories initialized")
		return nil

	default:
		return fmt.Errorf("unknown role store %q", cfg.Store)
	}
}

// wire builds services, auth and views on top of d.Repositories
func (d *Dependencies) wire(cfg *config.Config) error {
	d.RoleCache = roles.NewRoleCache(cfg.RoleCache.Size, cfg.RoleCache.TTL)
	d.RoleService = roles.NewService(d.Repositories, d.RoleCache, cfg.Auth.LookupTimeout, d.Logger)

	d.stopCleanup = make(chan struct{})
	if cfg.RoleCache.TTL > 0 {
		go d.RoleCache.StartCleanupWorker(cfg.RoleCache.TTL, d.stopCleanup)
	}

	d.initAuth(cfg)

	renderer, err := views.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("failed to load views: %w", err)
	}
	d.Renderer = renderer
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	tokenCfg := token.Config{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.TokenTTL,
		Leeway:   cfg.Auth.Leeway,
	}
	d.TokenValidator = token.NewValidator(tokenCfg)
	d.TokenIssuer = token.NewIssuer(tokenCfg)

	var source middleware.RoleSource
	if cfg.Auth.MergeStoredRoles {
		source = d.RoleService
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.TokenValidator, source, d.Logger)
	d.Logger.Info("auth initialized",
		zap.String("issuer", cfg.Auth.Issuer),
		zap.Bool("merge_stored_roles", cfg.Auth.MergeStoredRoles))
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	if d.stopCleanup != nil {
		close(d.stopCleanup)
		d.stopCleanup = nil
	}

	var errs []error
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
