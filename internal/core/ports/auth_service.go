package ports

import (
	"context"

	"github.com/myunity/auth-service/internal/core/domain"
)

// SignupInput is the validated signup request handed to AuthService.
type SignupInput struct {
	Username string
	Email    string
	Password string
	// Roles holds client supplied role names; empty means the default role.
	Roles []string
}

// SigninResult is the session artifact returned by a successful signin.
type SigninResult struct {
	Token     string
	Principal *domain.Principal
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.User, error)
	Signin(ctx context.Context, username, password string) (*SigninResult, error)
}

// PrincipalLoader resolves a token subject to a fresh principal.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, username string) (*domain.Principal, error)
}

// TokenService issues and verifies stateless bearer tokens.
type TokenService interface {
	Issue(subject string) (string, error)
	// Verify returns the subject, or domain.ErrInvalidToken for any failure.
	Verify(token string) (string, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Verify returns domain.ErrInvalidCredentials on mismatch.
	Verify(hash, plain string) error
}
