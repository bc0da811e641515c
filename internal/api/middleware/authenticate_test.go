package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/myunity/auth-service/internal/core/domain"
)

type stubVerifier struct {
	subjects map[string]string
	calls    int
}

func (v *stubVerifier) Verify(token string) (string, error) {
	v.calls++
	if s, ok := v.subjects[token]; ok {
		return s, nil
	}
	return "", domain.ErrInvalidToken
}

type stubLoader struct {
	principals map[string]*domain.Principal
	err        error
	calls      int
}

func (l *stubLoader) LoadPrincipal(_ context.Context, username string) (*domain.Principal, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	p, ok := l.principals[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return p, nil
}

func newAuthFixture() (*stubVerifier, *stubLoader) {
	verifier := &stubVerifier{subjects: map[string]string{
		"good":  "alice",
		"stale": "deleted",
	}}
	loader := &stubLoader{principals: map[string]*domain.Principal{
		"alice": {ID: 1, Username: "alice", Authorities: []domain.RoleName{domain.RoleUser}},
	}}
	return verifier, loader
}

func runAuthenticate(t *testing.T, header string, verifier *stubVerifier, loader *stubLoader) (*domain.Principal, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/test/user", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var (
		seen   *domain.Principal
		called bool
	)
	mw := Authenticate(verifier, loader, nil, zerolog.Nop())
	err := mw(func(c echo.Context) error {
		called = true
		seen, _ = domain.PrincipalFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})(c)

	if err == nil && !called {
		t.Fatalf("next not called")
	}
	return seen, err
}

func TestAuthenticate_ValidToken(t *testing.T) {
	verifier, loader := newAuthFixture()

	p, err := runAuthenticate(t, "Bearer good", verifier, loader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil || p.Username != "alice" {
		t.Fatalf("expected alice principal, got %+v", p)
	}
	if loader.calls != 1 {
		t.Fatalf("expected exactly one lookup, got %d", loader.calls)
	}
}

func TestAuthenticate_ProceedsUnauthenticated(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		wantVerify  int
		wantLookups int
	}{
		{"no header", "", 0, 0},
		{"other scheme", "Basic YWxpY2U6c2VjcmV0", 0, 0},
		{"lowercase scheme", "bearer good", 0, 0},
		{"empty token", "Bearer ", 0, 0},
		{"invalid token", "Bearer forged", 1, 0},
		{"subject gone", "Bearer stale", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier, loader := newAuthFixture()

			p, err := runAuthenticate(t, tt.header, verifier, loader)
			if err != nil {
				t.Fatalf("filter must not reject, got %v", err)
			}
			if p != nil {
				t.Fatalf("expected no principal, got %+v", p)
			}
			if verifier.calls != tt.wantVerify || loader.calls != tt.wantLookups {
				t.Fatalf("verify=%d lookups=%d, want %d/%d", verifier.calls, loader.calls, tt.wantVerify, tt.wantLookups)
			}
		})
	}
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	verifier, loader := newAuthFixture()
	loader.err = errors.New("connection refused")

	_, err := runAuthenticate(t, "Bearer good", verifier, loader)
	if err == nil || errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}
