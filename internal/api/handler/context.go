package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/myunity/auth-service/internal/core/domain"
)

// messageResponse is the body shape shared by acknowledgements and errors.
type messageResponse struct {
	Message string `json:"message"`
}

// currentPrincipal returns the principal attached by the Authenticate
// middleware. Routes behind the policy always have one; the check guards
// handlers mounted without it.
func currentPrincipal(c echo.Context) (*domain.Principal, error) {
	p, ok := domain.PrincipalFromContext(c.Request().Context())
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return p, nil
}
