package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/myunity/auth-service/internal/api/metrics"
	"github.com/myunity/auth-service/internal/core/domain"
	"github.com/myunity/auth-service/internal/core/ports"
)

const (
	msgRegistered = "User registered successfully!"
	msgSignedOut  = "You've been signed out!"
	tokenType     = "Bearer"
)

type AuthHandler struct {
	authService ports.AuthService
	metrics     *metrics.Auth
}

func NewAuthHandler(authService ports.AuthService, m *metrics.Auth) *AuthHandler {
	return &AuthHandler{authService: authService, metrics: m}
}

type signupRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=100"`
	Email    string   `json:"email" validate:"required,email,max=255"`
	Password string   `json:"password" validate:"required,min=6,max=72"`
	Roles    []string `json:"role,omitempty"`
}

type signinRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type signinResponse struct {
	Token    string   `json:"token"`
	Type     string   `json:"type"`
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// Signup registers a new account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account details; role defaults to user"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      500   {object}  messageResponse
// @Router       /api/auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return malformedBody()
	}
	if err := c.Validate(&req); err != nil {
		h.metrics.ObserveSignup(err)
		return err
	}

	_, err := h.authService.Signup(c.Request().Context(), ports.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	h.metrics.ObserveSignup(err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: msgRegistered})
}

// Signin verifies credentials and returns a bearer token.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signinRequest  true  "Credentials"
// @Success      200   {object}  signinResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Failure      429   {object}  messageResponse
// @Router       /api/auth/signin [post]
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinRequest
	if err := c.Bind(&req); err != nil {
		return malformedBody()
	}
	if err := c.Validate(&req); err != nil {
		h.metrics.ObserveSignin(err)
		return err
	}

	res, err := h.authService.Signin(c.Request().Context(), req.Username, req.Password)
	h.metrics.ObserveSignin(err)
	if err != nil {
		return err
	}

	p := res.Principal
	return c.JSON(http.StatusOK, signinResponse{
		Token:    res.Token,
		Type:     tokenType,
		ID:       p.ID,
		Username: p.Username,
		Email:    p.Email,
		Roles:    p.AuthorityNames(),
	})
}

// Signout acknowledges a client side logout. Tokens are stateless and stay
// valid until they expire.
//
// @Summary      Sign out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Router       /api/auth/signout [post]
func (h *AuthHandler) Signout(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: msgSignedOut})
}

func malformedBody() error {
	return domain.NewValidationError("body", "request body is malformed")
}
