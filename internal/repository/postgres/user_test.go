package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"rentacar-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "branch_id", "name", "email", "password_hash", "phone", "role", "registered_at", "deleted_at"}

func TestUserRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	u := &domain.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "hash", Role: domain.UserRoleClient}

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(nil, "Ana", "ana@example.com", "hash", "", "KLIJENT", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	assert.Equal(t, int64(5), u.ID)
	assert.False(t, u.RegisteredAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("FROM users WHERE LOWER\\(email\\) = LOWER\\(\\$1\\) AND deleted_at IS NULL").
			WithArgs("Sanja@Example.com").
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(3, 1, "Sanja", "sanja@example.com", "hash", "", "SLUZBENIK", now, nil))

		u, err := repo.GetByEmail(context.Background(), "Sanja@Example.com")
		require.NoError(t, err)
		assert.Equal(t, domain.UserRoleClerk, u.Role)
		require.NotNil(t, u.BranchID)
		assert.Equal(t, int64(1), *u.BranchID)
		assert.Nil(t, u.DeletedAt)
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery("FROM users WHERE LOWER\\(email\\)").
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestUserRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	filter := domain.UserFilter{Search: "ana", Role: domain.UserRoleClient}

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM users WHERE deleted_at IS NULL AND \\(name ILIKE \\$1 OR email ILIKE \\$1\\) AND role = \\$2").
		WithArgs("%ana%", "KLIJENT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("ORDER BY name, id LIMIT \\$3 OFFSET \\$4").
		WithArgs("%ana%", "KLIJENT", 20, 0).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(5, nil, "Ana", "ana@example.com", "hash", "", "KLIJENT", now, nil))

	users, total, err := NewUserRepository(db).List(context.Background(), filter, domain.PageRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Nil(t, users[0].BranchID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SoftDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE users SET deleted_at = \\$1 WHERE id = \\$2 AND deleted_at IS NULL").
		WithArgs(sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.SoftDelete(context.Background(), 5))

	mock.ExpectExec("UPDATE users SET deleted_at").
		WithArgs(sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, domain.IsNotFound(repo.SoftDelete(context.Background(), 5)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
