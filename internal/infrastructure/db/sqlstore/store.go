package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/myunity/auth-service/internal/core/domain"
)

const (
	existsByUsernameQuery = `SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`
	existsByEmailQuery    = `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`
	findRoleQuery         = `SELECT id, name FROM roles WHERE name = ?`

	findByUsernameQuery = `SELECT id, username, email, password_hash, created_at, updated_at
FROM users
WHERE username = ?`

	listUsersQuery = `SELECT id, username, email, password_hash, created_at, updated_at
FROM users
ORDER BY id`

	userRolesQuery = `SELECT r.id, r.name
FROM roles r
JOIN user_roles ur ON ur.role_id = r.id
WHERE ur.user_id = ?
ORDER BY r.id`

	allUserRolesQuery = `SELECT ur.user_id, r.id, r.name
FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
ORDER BY ur.user_id, r.id`

	insertUserQuery = `INSERT INTO users (username, email, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`

	insertUserRoleQuery = `INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)`
)

// Store is a relational CredentialStore over database/sql. The same queries
// serve postgres and sqlite; only placeholders and constraint errors differ.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) q(query string) string { return s.dialect.rebind(query) }

func (s *Store) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, existsByUsernameQuery, username)
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, existsByEmailQuery, email)
}

func (s *Store) exists(ctx context.Context, query, arg string) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, s.q(query), arg).Scan(&found); err != nil {
		return false, fmt.Errorf("exists query: %w", err)
	}
	return found, nil
}

// FindByUsername loads the user row, then its roles with a second explicit
// join query.
func (s *Store) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, s.q(findByUsernameQuery), username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.q(userRolesQuery), user.ID)
	if err != nil {
		return nil, fmt.Errorf("find user roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			role domain.Role
			name string
		)
		if err := rows.Scan(&role.ID, &name); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		role.Name = domain.RoleName(name)
		user.Roles = append(user.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find user roles: %w", err)
	}
	return user, nil
}

func (s *Store) FindRoleByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	var (
		role domain.Role
		raw  string
	)
	err := s.db.QueryRowContext(ctx, s.q(findRoleQuery), string(name)).Scan(&role.ID, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	role.Name = domain.RoleName(raw)
	return &role, nil
}

// ListUsers returns every user with roles, ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, listUsersQuery)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	byID := make(map[int64]*domain.User)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
		byID[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	roleRows, err := s.db.QueryContext(ctx, allUserRolesQuery)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	defer roleRows.Close()

	for roleRows.Next() {
		var (
			userID int64
			role   domain.Role
			name   string
		)
		if err := roleRows.Scan(&userID, &role.ID, &name); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		if u, ok := byID[userID]; ok {
			role.Name = domain.RoleName(name)
			u.Roles = append(u.Roles, role)
		}
	}
	if err := roleRows.Err(); err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	return users, nil
}

// Save inserts the user and its role links in one transaction. Unique
// constraint violations surface as domain.ErrUsernameTaken or
// domain.ErrEmailInUse.
func (s *Store) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := *user
	created.Roles = append([]domain.Role(nil), user.Roles...)

	err = tx.QueryRowContext(ctx, s.q(insertUserQuery),
		user.Username, user.Email, user.PasswordHash, user.CreatedAt.UTC(), user.UpdatedAt.UTC(),
	).Scan(&created.ID)
	if err != nil {
		if mapped := uniqueViolation(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	for _, role := range user.Roles {
		if _, err := tx.ExecContext(ctx, s.q(insertUserRoleQuery), created.ID, role.ID); err != nil {
			return nil, fmt.Errorf("insert user role %s: %w", role.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if mapped := uniqueViolation(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("commit save: %w", err)
	}
	return &created, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u                domain.User
		created, updated timestamp
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created, &updated); err != nil {
		return nil, err
	}
	u.CreatedAt = created.Time
	u.UpdatedAt = updated.Time
	u.Roles = []domain.Role{}
	return &u, nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// timestamp scans TIMESTAMPTZ values from postgres as well as sqlite's text
// representation.
type timestamp struct{ time.Time }

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("timestamp: unsupported type %T", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: cannot parse %q", s)
}
