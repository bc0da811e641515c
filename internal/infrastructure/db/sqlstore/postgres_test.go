package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myunity/auth-service/internal/core/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, Postgres), mock
}

func TestPostgresStore_Exists(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.ExistsByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`)).
		WithArgs("a@x.com").
		WillReturnError(errors.New("connection reset"))

	_, err = s.ExistsByEmail(context.Background(), "a@x.com")
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

var userColumns = []string{"id", "username", "email", "password_hash", "created_at", "updated_at"}

func TestPostgresStore_FindByUsername(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	t.Run("user with roles", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users
WHERE username = $1`)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(int64(7), "alice", "a@x.com", "hash", now, now))
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE ur.user_id = $1`)).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(int64(1), "ROLE_USER").
				AddRow(int64(3), "ROLE_ADMIN"))

		user, err := s.FindByUsername(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)
		assert.Equal(t, []domain.RoleName{domain.RoleUser, domain.RoleAdmin}, user.RoleNames())
		assert.True(t, user.CreatedAt.Equal(now))
	})

	t.Run("user without roles", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE username = $1`)).
			WithArgs("bob").
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(int64(8), "bob", "b@x.com", "hash", now, now))
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE ur.user_id = $1`)).
			WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

		user, err := s.FindByUsername(context.Background(), "bob")
		require.NoError(t, err)
		assert.Empty(t, user.Roles)
	})

	t.Run("missing user", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE username = $1`)).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(userColumns))

		_, err := s.FindByUsername(context.Background(), "ghost")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE username = $1`)).
			WithArgs("alice").
			WillReturnError(errors.New("connection refused"))

		_, err := s.FindByUsername(context.Background(), "alice")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrUserNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListUsers(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(int64(1), "alice", "a@x.com", "h1", now, now).
			AddRow(int64(2), "bob", "b@x.com", "h2", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY ur.user_id, r.id`)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "id", "name"}).
			AddRow(int64(1), int64(1), "ROLE_USER").
			AddRow(int64(2), int64(1), "ROLE_USER").
			AddRow(int64(2), int64(3), "ROLE_ADMIN"))

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, []domain.RoleName{domain.RoleUser}, users[0].RoleNames())
	assert.Equal(t, []domain.RoleName{domain.RoleUser, domain.RoleAdmin}, users[1].RoleNames())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save(t *testing.T) {
	now := time.Now().UTC()
	user := &domain.User{
		Username:     "alice",
		Email:        "a@x.com",
		PasswordHash: "hash",
		Roles:        []domain.Role{{ID: 1, Name: domain.RoleUser}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	t.Run("success", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (username, email, password_hash, created_at, updated_at)`)).
			WithArgs("alice", "a@x.com", "hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`)).
			WithArgs(int64(42), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		created, err := s.Save(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, int64(42), created.ID)
		assert.Zero(t, user.ID, "input must not be mutated")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	cases := []struct {
		name       string
		pqErr      *pq.Error
		wantDomain error
	}{
		{"username constraint", &pq.Error{Code: "23505", Constraint: "uk_users_username"}, domain.ErrUsernameTaken},
		{"email constraint", &pq.Error{Code: "23505", Constraint: "uk_users_email"}, domain.ErrEmailInUse},
		{"email detail only", &pq.Error{Code: "23505", Detail: "Key (email)=(a@x.com) already exists."}, domain.ErrEmailInUse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, mock := newMockStore(t)

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
				WillReturnError(tc.pqErr)
			mock.ExpectRollback()

			_, err := s.Save(context.Background(), user)
			assert.ErrorIs(t, err, tc.wantDomain)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("other failure", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
			WillReturnError(&pq.Error{Code: "23502", Column: "email"})
		mock.ExpectRollback()

		_, err := s.Save(context.Background(), user)
		require.Error(t, err)
		assert.False(t, errors.Is(err, domain.ErrUsernameTaken) || errors.Is(err, domain.ErrEmailInUse))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
