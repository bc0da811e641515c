package service

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/myunity/auth-service/internal/core/domain"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret1" {
		t.Fatalf("hash equals plaintext")
	}
	if err := h.Verify(hash, "secret1"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := h.Verify(hash, "secret2"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	again, _ := h.Hash("secret1")
	if again == hash {
		t.Fatalf("expected salted hashes to differ")
	}
}

func TestBcryptHasher_TooLong(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("a", 73))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestBcryptHasher_CorruptHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	err := h.Verify("not-a-bcrypt-hash", "secret1")
	if err == nil || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected wrapped bcrypt error, got %v", err)
	}
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	if h := NewBcryptHasher(1); h.cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", h.cost)
	}
	if h := NewBcryptHasher(bcrypt.MaxCost + 1); h.cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", h.cost)
	}
}

func TestNewBcryptHasher_DecoyFallback(t *testing.T) {
	orig := generateHash
	generateHash = func([]byte, int) ([]byte, error) { return nil, errors.New("entropy exhausted") }
	t.Cleanup(func() { generateHash = orig })

	h := NewBcryptHasher(bcrypt.MinCost)

	if cost, err := bcrypt.Cost(h.decoy); err != nil || cost != 10 {
		t.Fatalf("decoy must stay a usable bcrypt hash, cost=%d err=%v", cost, err)
	}
	if err := bcrypt.CompareHashAndPassword(h.decoy, []byte("anything")); !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		t.Fatalf("decoy comparison should run to a mismatch, got %v", err)
	}
}
