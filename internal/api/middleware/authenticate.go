package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/myunity/auth-service/internal/api/metrics"
	"github.com/myunity/auth-service/internal/core/domain"
	"github.com/myunity/auth-service/internal/core/ports"
)

const bearerPrefix = "Bearer "

// TokenVerifier is the verification half of ports.TokenService.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Authenticate resolves an optional bearer token into a principal on the
// request context. It never rejects a request on its own: a missing, invalid
// or expired token, or a subject that no longer exists, leaves the request
// unauthenticated and the authorization policy decides. A valid token costs
// exactly one principal lookup.
func Authenticate(tokens TokenVerifier, principals ports.PrincipalLoader, m *metrics.Auth, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}

			subject, err := tokens.Verify(token)
			if err != nil {
				m.ObserveToken("invalid")
				return next(c)
			}

			req := c.Request()
			principal, err := principals.LoadPrincipal(req.Context(), subject)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					m.ObserveToken("unknown_subject")
					log.Debug().Str("subject", subject).Msg("token subject no longer exists")
					return next(c)
				}
				m.ObserveToken("error")
				return err
			}

			m.ObserveToken("valid")
			c.SetRequest(req.WithContext(domain.WithPrincipal(req.Context(), principal)))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
