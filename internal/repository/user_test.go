package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"blogicum/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

// expectUserByID arms the SELECT that GetByID issues for one user.
func expectUserByID(mock sqlmock.Sqlmock, id int) *sqlmock.ExpectedQuery {
	return mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "users" WHERE "users"."id" = $1 AND "users"."deleted_at" IS NULL ORDER BY "users"."id" LIMIT $2`)).
		WithArgs(id, 1)
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		expectUserByID(mock, 1).WillReturnRows(
			sqlmock.NewRows([]string{"id", "username", "email"}).
				AddRow(1, "blogger", "blogger@example.com"))

		user, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "blogger", user.Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row maps to not-found", func(t *testing.T) {
		expectUserByID(mock, 99).WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.GetByID(ctx, 99)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error surfaces", func(t *testing.T) {
		expectUserByID(mock, 1).WillReturnError(errors.New("connection timeout"))

		user, err := repo.GetByID(ctx, 1)
		assert.Error(t, err)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_GetByEmail_Found(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	email := "blogger@example.com"
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT * FROM "users" WHERE email = $1 AND "users"."deleted_at" IS NULL ORDER BY "users"."id" LIMIT $2`)).
		WithArgs(email, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(1, email))

	user, err := repo.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, email, user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Both free-form lookups report a missing row as (nil, nil) so registration
// can tell "name is free" apart from "query failed".
func TestUserRepository_Lookups_MissingRowIsNilNil(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
		WithArgs("ghost@example.com", 1).
		WillReturnError(gorm.ErrRecordNotFound)
	user, err := repo.GetByEmail(ctx, "ghost@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE username = $1`)).
		WithArgs("ghost", 1).
		WillReturnError(gorm.ErrRecordNotFound)
	user, err = repo.GetByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, user)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("inserts row", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		err := repo.Create(ctx, &models.User{Username: "newblogger", Email: "new@example.com"})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate username maps to conflict", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
			WillReturnError(errors.New(`duplicate key value violates unique constraint "idx_users_username"`))
		mock.ExpectRollback()

		err := repo.Create(ctx, &models.User{Username: "taken", Email: "taken@example.com"})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeConflict, appErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_Delete_Cascades(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	// Comments the user wrote anywhere.
	mock.ExpectExec(`UPDATE "comments" SET "deleted_at"=.+ WHERE author_id = `).
		WillReturnResult(sqlmock.NewResult(0, 3))
	// Comments other people left under the user's posts.
	mock.ExpectExec(`UPDATE "comments" SET "deleted_at"=.+ WHERE post_id IN \(SELECT`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE "posts" SET "deleted_at"=.+ WHERE author_id = `).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`UPDATE "users" SET "deleted_at"=.+ WHERE "users"\."id" = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), 7)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(errors.New(`duplicate key value violates unique constraint "idx_categories_slug"`)))
	assert.True(t, isDuplicateKey(errors.New("ERROR: unique constraint failed (SQLSTATE 23505)")))
	assert.False(t, isDuplicateKey(errors.New("connection refused")))
	assert.False(t, isDuplicateKey(nil))
}
