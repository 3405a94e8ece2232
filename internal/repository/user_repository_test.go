package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func userColumns() []string {
	return []string{"id", "employee_id", "username", "password_hash", "role", "name", "status", "program_id", "college_id", "last_login"}
}

func TestUserRepositoryFindByUsername(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("asha.t").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow("u1", "EMP-7", "asha.t", "$2a$10$hash", "Teacher", "Asha", "Active", "p1", nil, nil))

	user, err := repo.FindByUsername(context.Background(), "asha.t")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
	require.Equal(t, "p1", *user.ProgramID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByUsernameNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateLastLogin(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET last_login = $2 WHERE id = $1")).
		WithArgs("u1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateLastLogin(context.Background(), "u1", now))
	require.NoError(t, mock.ExpectationsWereMet())
}
