package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/myunity/auth-service/internal/core/domain"
)

// fallbackDecoy is a valid cost-10 bcrypt hash used when the decoy cannot be
// generated at the configured cost.
var fallbackDecoy = []byte("$2a$10$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga")

var generateHash = bcrypt.GenerateFromPassword

// BcryptHasher implements ports.PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost int
	// decoy is compared against when the user does not exist so that an
	// unknown username costs the same as a wrong password.
	decoy []byte
}

// NewBcryptHasher returns a hasher using cost, or bcrypt.DefaultCost when cost
// is outside bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	decoy, err := generateHash([]byte("decoy-password"), cost)
	if err != nil {
		decoy = fallbackDecoy
	}
	return &BcryptHasher{cost: cost, decoy: decoy}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	hash, err := generateHash([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.NewValidationError("password", "password must be at most 72 bytes")
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return domain.ErrInvalidCredentials
	default:
		return fmt.Errorf("verify password: %w", err)
	}
}

// Burn performs a throwaway comparison.
func (h *BcryptHasher) Burn(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.decoy, []byte(plain))
}
