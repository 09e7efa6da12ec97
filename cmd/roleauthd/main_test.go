package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/role-authority/app"
	"github.com/upb/role-authority/config"
	"github.com/upb/role-authority/repositories/memory"
	"github.com/upb/role-authority/routes"
	"github.com/upb/role-authority/token"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	os.Setenv("ENVIRONMENT", "test")
	os.Setenv("LOG_LEVEL", "error")

	code := m.Run()

	os.Exit(code)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Environment: "test",
		Store:       config.StoreMemory,
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			RequestTimeout:  5 * time.Second,
		},
		Auth: config.AuthConfig{
			JWTSecret:     "main-test-secret-that-is-long-enough-1",
			Issuer:        "role-authority",
			Audience:      "role-authority",
			TokenTTL:      time.Hour,
			LookupTimeout: time.Second,
		},
		RoleCache: config.RoleCacheConfig{Size: 16, TTL: time.Minute},
	}
}

func TestInitLogger(t *testing.T) {
	t.Run("default json logger", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "info")
		t.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("development console logger", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_FORMAT", "console")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("invalid log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "invalid")
		t.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		assert.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("defaults when not set", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("LOG_FORMAT", "")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})
}

func TestApplicationStartup(t *testing.T) {
	cfg := testConfig(t)
	logger := zaptest.NewLogger(t)

	deps, err := app.NewDependenciesWithRepositories(cfg, memory.NewRepositories(memory.NewStore()), logger)
	require.NoError(t, err)
	defer deps.Close(context.Background())

	ts := httptest.NewServer(routes.SetupRoutes(deps))
	defer ts.Close()

	t.Run("health check returns ok", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var body struct {
			Data struct {
				Status string `json:"status"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body.Data.Status)
	})

	t.Run("anonymous landing page renders the error view", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	})
}

func TestServe_GracefulShutdown(t *testing.T) {
	cfg := testConfig(t)
	logger := zaptest.NewLogger(t)

	deps, err := app.NewDependenciesWithRepositories(cfg, memory.NewRepositories(memory.NewStore()), logger)
	require.NoError(t, err)

	srv := newServer(cfg, routes.SetupRoutes(deps))
	assert.Equal(t, "127.0.0.1:0", srv.Addr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, deps) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}

func setCLIEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_JWT_SECRET", "cli-test-secret-that-is-long-enough-12")
	t.Setenv("ROLE_STORE", config.StoreMemory)
	t.Setenv("LOG_LEVEL", "error")
}

func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeRoot(t, newRootCmd(), args...)
}

func executeRoot(t *testing.T, root *cobra.Command, args ...string) (string, error) {
	t.Helper()

	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTokenIssueCommand(t *testing.T) {
	setCLIEnv(t)

	t.Run("issues a verifiable token", func(t *testing.T) {
		out, err := executeCmd(t, "token", "issue", "--subject", "alice", "--role", "admin", "--role", "viewer")
		require.NoError(t, err)

		validator := token.NewValidator(token.Config{
			Secret:   []byte("cli-test-secret-that-is-long-enough-12"),
			Issuer:   "role-authority",
			Audience: "role-authority",
		})
		claims, err := validator.ValidateToken(context.Background(), strings.TrimSpace(out))
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Subject)
		assert.Equal(t, []string{"admin", "viewer"}, claims.Roles)
	})

	t.Run("requires subject", func(t *testing.T) {
		_, err := executeCmd(t, "token", "issue")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--subject is required")
	})

	t.Run("disabled in production", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("ROLE_STORE", config.StorePostgres)

		_, err := executeCmd(t, "token", "issue", "--subject", "alice")
		require.Error(t, err)
	})
}

func TestRolesCommands(t *testing.T) {
	setCLIEnv(t)
	t.Setenv("ROLE_STORE", config.StorePostgres)
	t.Setenv("DATABASE_URL", "postgres://roleauth@localhost:5432/roleauth?sslmode=disable")

	// every command opens the same store, as they would against one database
	store := memory.NewStore()
	run := func(args ...string) (string, error) {
		c := &cli{openDeps: func(_ context.Context, cfg *config.Config, logger *zap.Logger) (*app.Dependencies, error) {
			return app.NewDependenciesWithRepositories(cfg, memory.NewRepositories(store), logger)
		}}
		return executeRoot(t, newRootCmdWith(c), args...)
	}

	type rolesBody struct {
		Subject string   `json:"subject"`
		Roles   []string `json:"roles"`
	}

	t.Run("set prints the normalized roles", func(t *testing.T) {
		out, err := run("roles", "set", "carol", "--role", "admin", "--role", "viewer", "--role", "admin")
		require.NoError(t, err)

		var body rolesBody
		require.NoError(t, json.Unmarshal([]byte(out), &body))
		assert.Equal(t, "carol", body.Subject)
		assert.Equal(t, []string{"admin", "viewer"}, body.Roles)
	})

	t.Run("get reads what set stored", func(t *testing.T) {
		out, err := run("roles", "get", "carol")
		require.NoError(t, err)

		var body rolesBody
		require.NoError(t, json.Unmarshal([]byte(out), &body))
		assert.Equal(t, []string{"admin", "viewer"}, body.Roles)
	})

	t.Run("set requires a role", func(t *testing.T) {
		_, err := run("roles", "set", "carol")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--role")
	})

	t.Run("rejects invalid role names", func(t *testing.T) {
		_, err := run("roles", "set", "carol", "--role", "bad role")
		assert.Error(t, err)
	})

	t.Run("delete removes the stored roles", func(t *testing.T) {
		out, err := run("roles", "delete", "carol")
		require.NoError(t, err)
		assert.Contains(t, out, "roles of carol deleted")

		out, err = run("roles", "get", "carol")
		require.NoError(t, err)
		var body rolesBody
		require.NoError(t, json.Unmarshal([]byte(out), &body))
		assert.Empty(t, body.Roles)
	})

	t.Run("delete of unknown subject fails", func(t *testing.T) {
		_, err := run("roles", "delete", "nobody")
		assert.Error(t, err)
	})
}

func TestRolesCommands_RequirePostgres(t *testing.T) {
	setCLIEnv(t)

	tests := [][]string{
		{"roles", "get", "carol"},
		{"roles", "set", "carol", "--role", "admin"},
		{"roles", "delete", "carol"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args[:2], " "), func(t *testing.T) {
			out, err := executeCmd(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "requires ROLE_STORE=postgres")
			assert.Empty(t, out)
		})
	}
}

func TestDBInitCommand_RequiresPostgres(t *testing.T) {
	setCLIEnv(t)

	_, err := executeCmd(t, "db", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires ROLE_STORE=postgres")
}
