package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/role-authority/models"
	"github.com/upb/role-authority/repositories"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return Wrap(sqlDB, zap.NewNop()), mock
}

var (
	selectRoles = regexp.QuoteMeta("SELECT id, subject, role, position, created_at FROM role_assignments")
	deleteRoles = regexp.QuoteMeta("DELETE FROM role_assignments WHERE subject = $1")
	insertRole  = regexp.QuoteMeta("INSERT INTO role_assignments")
)

func TestRoleRepository_GetBySubject(t *testing.T) {
	ctx := context.Background()

	t.Run("returns assignments in order", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRoleRepository(db, zap.NewNop())
		now := time.Now().UTC()

		mock.ExpectQuery(selectRoles).
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "subject", "role", "position", "created_at"}).
				AddRow(uuid.NewString(), "user-1", "user", 0, now).
				AddRow(uuid.NewString(), "user-1", "admin", 1, now))

		got, err := repo.GetBySubject(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"user", "admin"}, models.RolesOf(got))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown subject yields empty slice", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRoleRepository(db, zap.NewNop())

		mock.ExpectQuery(selectRoles).
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"id", "subject", "role", "position", "created_at"}))

		got, err := repo.GetBySubject(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("query error is wrapped", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRoleRepository(db, zap.NewNop())

		dbErr := errors.New("connection reset")
		mock.ExpectQuery(selectRoles).WithArgs("user-1").WillReturnError(dbErr)

		_, err := repo.GetBySubject(ctx, "user-1")
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestRoleRepository_ReplaceForSubject(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes then inserts in one transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRoleRepository(db, zap.NewNop())
		assignments := models.NewRoleAssignments("user-1", []string{"user", "admin"})

		mock.ExpectBegin()
		mock.ExpectExec(deleteRoles).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 3))
		for _, a := range assignments {
			mock.ExpectExec(insertRole).
				WithArgs(a.ID, "user-1", a.Role, a.Position, a.CreatedAt).
				WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectCommit()

		require.NoError(t, repo.ReplaceForSubject(ctx, "user-1", assignments))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty replacement only clears", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRoleRepository(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectExec(deleteRoles).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, repo.ReplaceForSubject(ctx, "user-1", nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRoleRepository(db, zap.NewNop())
		assignments := models.NewRoleAssignments("user-1", []string{"admin"})

		mock.ExpectBegin()
		mock.ExpectExec(deleteRoles).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insertRole).WillReturnError(errors.New("unique violation"))
		mock.ExpectRollback()

		err := repo.ReplaceForSubject(ctx, "user-1", assignments)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("joins an outer transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewRoleRepository(db, zap.NewNop())
		tm := NewTransactionManager(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectExec(deleteRoles).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := tm.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
			return repo.ReplaceForSubject(ctx, "user-1", nil)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRoleRepository_DeleteBySubject(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoleRepository(db, zap.NewNop())

	mock.ExpectExec(deleteRoles).WithArgs("user-1").WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteBySubject(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepository_Ping(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoleRepository(db, zap.NewNop())

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	require.NoError(t, repo.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAuditRepository(db, zap.NewNop())

		log := models.NewAuditLog("admin-1", models.AuditActionRolesReplaced, "user-1")
		require.NoError(t, log.SetDetails(map[string]interface{}{"roles": []string{"admin"}}))

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
			WithArgs(log.ID, "admin-1", log.Action, "user-1", sqlmock.AnyArg(), "", log.Timestamp).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, log))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list by subject", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAuditRepository(db, zap.NewNop())
		now := time.Now().UTC()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, actor, action, subject, details, request_id, timestamp FROM audit_logs")).
			WithArgs("user-1", 10).
			WillReturnRows(sqlmock.NewRows([]string{"id", "actor", "action", "subject", "details", "request_id", "timestamp"}).
				AddRow(uuid.NewString(), "admin-1", "roles_deleted", "user-1", nil, nil, now).
				AddRow(uuid.NewString(), "admin-1", "roles_replaced", "user-1", []byte(`{"roles":["admin"]}`), "req-1", now.Add(-time.Minute)))

		logs, err := repo.ListBySubject(ctx, "user-1", 10)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, models.AuditActionRolesDeleted, logs[0].Action)
		assert.Empty(t, logs[0].RequestID)
		assert.Equal(t, "req-1", logs[1].RequestID)
		assert.JSONEq(t, `{"roles":["admin"]}`, string(logs[1].Details))
	})
}
