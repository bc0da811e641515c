package ports

import (
	"context"

	"github.com/myunity/auth-service/internal/core/domain"
)

// CredentialStore is the persistence boundary for users and roles.
//
// Roles are always loaded by an explicit query inside FindByUsername and
// ListUsers; there is no lazy loading. Save must map unique constraint
// violations to domain.ErrUsernameTaken or domain.ErrEmailInUse.
type CredentialStore interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// FindByUsername returns domain.ErrUserNotFound when absent.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindRoleByName returns domain.ErrRoleNotFound when the role is not seeded.
	FindRoleByName(ctx context.Context, name domain.RoleName) (*domain.Role, error)
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
	UserDirectory
	Ping(ctx context.Context) error
}

// UserDirectory lists accounts for administrative views.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]*domain.User, error)
}
