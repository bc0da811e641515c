package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/myunity/auth-service/internal/core/domain"
	"github.com/myunity/auth-service/internal/core/ports"
)

type stubAuthService struct {
	signupFn func(ctx context.Context, in ports.SignupInput) (*domain.User, error)
	signinFn func(ctx context.Context, username, password string) (*ports.SigninResult, error)
}

func (s *stubAuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	return s.signupFn(ctx, in)
}

func (s *stubAuthService) Signin(ctx context.Context, username, password string) (*ports.SigninResult, error) {
	return s.signinFn(ctx, username, password)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonContext(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
			if in.Username != "alice" || in.Email != "a@x.com" || in.Password != "secret1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if len(in.Roles) != 2 || in.Roles[0] != "mod" || in.Roles[1] != "user" {
				t.Fatalf("unexpected roles: %v", in.Roles)
			}
			return &domain.User{ID: 1, Username: in.Username}, nil
		},
	}
	handler := NewAuthHandler(stub, nil)

	c, rec := jsonContext(e, "/api/auth/signup", `{"username":"alice","email":"a@x.com","password":"secret1","role":["mod","user"]}`)

	if err := handler.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["message"] != "User registered successfully!" {
		t.Fatalf("unexpected message: %q", resp["message"])
	}
}

func TestAuthHandler_Signup_Validation(t *testing.T) {
	tests := map[string]string{
		"short username": `{"username":"al","email":"a@x.com","password":"secret1"}`,
		"bad email":      `{"username":"alice","email":"not-an-email","password":"secret1"}`,
		"short password": `{"username":"alice","email":"a@x.com","password":"123"}`,
		"long password":  `{"username":"alice","email":"a@x.com","password":"` + strings.Repeat("p", 73) + `"}`,
		"missing fields": `{}`,
		"malformed":      `not-json`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			e := newEcho()
			stub := &stubAuthService{
				signupFn: func(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
					t.Fatalf("service must not be called")
					return nil, nil
				},
			}
			c, _ := jsonContext(e, "/api/auth/signup", body)

			err := NewAuthHandler(stub, nil).Signup(c)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) || !verr.HasErrors() {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestAuthHandler_Signup_DomainErrors(t *testing.T) {
	for _, want := range []error{domain.ErrUsernameTaken, domain.ErrEmailInUse, domain.ErrRoleNotFound} {
		e := newEcho()
		stub := &stubAuthService{
			signupFn: func(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
				return nil, want
			},
		}
		c, rec := jsonContext(e, "/api/auth/signup", `{"username":"alice","email":"a@x.com","password":"secret1"}`)

		err := NewAuthHandler(stub, nil).Signup(c)
		if !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
		if rec.Body.Len() != 0 {
			t.Fatalf("handler must leave rendering to the error handler")
		}
	}
}

func TestAuthHandler_Signin_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		signinFn: func(ctx context.Context, username, password string) (*ports.SigninResult, error) {
			if username != "alice" || password != "secret1" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return &ports.SigninResult{
				Token: "token123",
				Principal: &domain.Principal{
					ID:          7,
					Username:    "alice",
					Email:       "a@x.com",
					Authorities: []domain.RoleName{domain.RoleUser, domain.RoleAdmin},
				},
			}, nil
		},
	}
	handler := NewAuthHandler(stub, nil)

	c, rec := jsonContext(e, "/api/auth/signin", `{"username":"alice","password":"secret1"}`)

	if err := handler.Signin(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp signinResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Token != "token123" || resp.Type != "Bearer" || resp.ID != 7 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Username != "alice" || resp.Email != "a@x.com" {
		t.Fatalf("unexpected identity: %+v", resp)
	}
	if len(resp.Roles) != 2 || resp.Roles[0] != "ROLE_USER" || resp.Roles[1] != "ROLE_ADMIN" {
		t.Fatalf("unexpected roles: %v", resp.Roles)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response leaks password material: %s", rec.Body.String())
	}
}

func TestAuthHandler_Signin_InvalidCredentials(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		signinFn: func(ctx context.Context, username, password string) (*ports.SigninResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	c, rec := jsonContext(e, "/api/auth/signin", `{"username":"alice","password":"wrong"}`)

	err := NewAuthHandler(stub, nil).Signin(c)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("no token may be written on failure")
	}
}

func TestAuthHandler_Signin_MissingPassword(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		signinFn: func(ctx context.Context, username, password string) (*ports.SigninResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c, _ := jsonContext(e, "/api/auth/signin", `{"username":"alice"}`)

	err := NewAuthHandler(stub, nil).Signin(c)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Fields[0].Field != "password" {
		t.Fatalf("expected password field error, got %+v", verr.Fields)
	}
}

func TestAuthHandler_Signout(t *testing.T) {
	e := newEcho()
	c, rec := jsonContext(e, "/api/auth/signout", ``)

	if err := NewAuthHandler(&stubAuthService{}, nil).Signout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "You've been signed out!") {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}
