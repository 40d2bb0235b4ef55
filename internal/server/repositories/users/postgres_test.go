package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "name", "username", "email", "password_hash", "profile_image", "role_id", "title", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2025, 2, 16, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+users\s*\(id,\s*name,\s*username,\s*email,\s*password_hash,\s*role_id\).*RETURNING\s+id,\s*created_at`).
		WithArgs(int64(0), "Alice", "alice", "a@example.com", "hash", int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(5), created))

	u := &models.User{Name: "Alice", Username: "alice", Email: "a@example.com", PasswordHash: "hash", RoleID: 2}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.ID)
	assert.Equal(t, created, got.CreatedAt)
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{})
	assert.ErrorContains(t, err, "db error: db down")
	assert.NotErrorIs(t, err, common.ErrorConflict)
}

func TestGetByEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	img := "users/5/avatar.png"

	mock.ExpectQuery(`(?s)FROM\s+users\s+u\s+JOIN\s+roles\s+r.*WHERE\s+u\.email\s*=\s*\$1`).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(5), "Alice", "alice", "a@example.com", "hash", img, int64(1), "admin", time.Now()))

	got, err := repo.GetByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Role)
	require.NotNil(t, got.ProfileImage)
	assert.Equal(t, img, *got.ProfileImage)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`WHERE\s+u\.id\s*=\s*\$1`).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`ORDER\s+BY\s+u\.id`).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(1), "Admin", "admin", "admin@example.com", "h", nil, int64(1), "admin", time.Now()).
			AddRow(int64(2), "Bob", "bob", "bob@example.com", "h", nil, int64(2), "user", time.Now()))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "bob", got[1].Username)
	assert.Nil(t, got[1].ProfileImage)
}

func TestUpdateRoleAndDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+role_id\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(2), int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE\s+users\s+SET\s+profile_image`).
		WithArgs(int64(2), "users/2/p.png").WillReturnError(errors.New("boom"))

	require.NoError(t, repo.UpdateRole(context.Background(), 2, 1))
	assert.ErrorIs(t, repo.Delete(context.Background(), 3), common.ErrorNotFound)
	assert.ErrorContains(t, repo.UpdateProfileImage(context.Background(), 2, "users/2/p.png"), "db error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIDs(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT\s+id\s+FROM\s+users`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(3)))

	ids, err := repo.IDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)
}

func TestRoles(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT\s+id,\s*title\s+FROM\s+roles\s+ORDER\s+BY\s+id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow(int64(1), "admin").AddRow(int64(2), "user"))
	mock.ExpectQuery(`FROM\s+roles\s+WHERE\s+title\s*=\s*\$1`).
		WithArgs("user").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow(int64(2), "user"))
	mock.ExpectQuery(`FROM\s+roles\s+WHERE\s+title\s*=\s*\$1`).
		WithArgs("root").WillReturnError(sql.ErrNoRows)

	roles, err := repo.ListRoles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Role{{ID: 1, Title: "admin"}, {ID: 2, Title: "user"}}, roles)

	role, err := repo.RoleByTitle(context.Background(), "user")
	require.NoError(t, err)
	assert.Equal(t, int64(2), role.ID)

	_, err = repo.RoleByTitle(context.Background(), "root")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
