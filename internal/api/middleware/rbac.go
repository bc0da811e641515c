package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/myunity/auth-service/internal/core/domain"
)

// RequireRoles lets the request through when the principal holds any of
// roles. Without a principal it answers 401, with the wrong roles 403.
func RequireRoles(roles ...domain.RoleName) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := domain.PrincipalFromContext(c.Request().Context())
			if !ok {
				return domain.ErrUnauthenticated
			}
			if !p.HasAnyAuthority(roles...) {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
