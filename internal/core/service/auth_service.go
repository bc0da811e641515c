package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/myunity/auth-service/internal/core/domain"
	"github.com/myunity/auth-service/internal/core/ports"
)

// LoginThrottle abstracts the signin attempt counter (Redis). Reserve must
// count the attempt and decide in one atomic step.
type LoginThrottle interface {
	Reserve(ctx context.Context, username string) (bool, error)
	Reset(ctx context.Context, username string) error
}

// AuthService implements signup, signin and principal loading.
type AuthService struct {
	store    ports.CredentialStore
	hasher   ports.PasswordHasher
	tokens   ports.TokenService
	throttle LoginThrottle
	log      zerolog.Logger
}

// Option customises an AuthService.
type Option func(*AuthService)

// WithLoginThrottle enables lockout after repeated failed signins.
func WithLoginThrottle(t LoginThrottle) Option {
	return func(s *AuthService) { s.throttle = t }
}

func NewAuthService(store ports.CredentialStore, hasher ports.PasswordHasher, tokens ports.TokenService, log zerolog.Logger, opts ...Option) *AuthService {
	s := &AuthService{store: store, hasher: hasher, tokens: tokens, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	taken, err := s.store.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("signup: check username: %w", err)
	}
	if taken {
		return nil, domain.ErrUsernameTaken
	}

	inUse, err := s.store.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("signup: check email: %w", err)
	}
	if inUse {
		return nil, domain.ErrEmailInUse
	}

	roles, err := s.resolveRoles(ctx, in.Roles)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created, err := s.store.Save(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.log.Info().
		Int64("user_id", created.ID).
		Str("username", created.Username).
		Strs("roles", roleStrings(created.RoleNames())).
		Msg("user registered")

	return created, nil
}

// resolveRoles maps requested names to seeded Role records, falling back to
// the default role. Duplicates collapse to one.
func (s *AuthService) resolveRoles(ctx context.Context, requested []string) ([]domain.Role, error) {
	names := make([]domain.RoleName, 0, len(requested))
	seen := make(map[domain.RoleName]struct{}, len(requested))
	for _, raw := range requested {
		name, ok := domain.ParseRoleName(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrRoleNotFound, raw)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if len(names) == 0 {
		names = append(names, domain.DefaultRole)
	}

	roles := make([]domain.Role, 0, len(names))
	for _, name := range names {
		role, err := s.store.FindRoleByName(ctx, name)
		if err != nil {
			if errors.Is(err, domain.ErrRoleNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrRoleNotFound, name)
			}
			return nil, fmt.Errorf("signup: find role %s: %w", name, err)
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

// Signin verifies credentials and issues a token. Unknown usernames and wrong
// passwords both yield domain.ErrInvalidCredentials.
func (s *AuthService) Signin(ctx context.Context, username, password string) (*ports.SigninResult, error) {
	if s.throttle != nil {
		allowed, err := s.throttle.Reserve(ctx, username)
		if err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("throttle check failed, continuing")
		} else if !allowed {
			return nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			if b, ok := s.hasher.(interface{ Burn(string) }); ok {
				b.Burn(password)
			}
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("signin: %w", err)
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			s.log.Error().Err(err).Int64("user_id", user.ID).Msg("stored password hash unusable")
		}
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, fmt.Errorf("signin: %w", err)
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, username); err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("failed to reset signin throttle")
		}
	}

	s.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user signed in")

	return &ports.SigninResult{Token: token, Principal: domain.NewPrincipal(user)}, nil
}

// LoadPrincipal resolves a token subject. It performs exactly one store lookup.
func (s *AuthService) LoadPrincipal(ctx context.Context, username string) (*domain.Principal, error) {
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return domain.NewPrincipal(user), nil
}

func roleStrings(names []domain.RoleName) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
