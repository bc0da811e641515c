package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/myunity/auth-service/internal/core/domain"
)

const (
	msgUnauthorized   = "Error: Unauthorized"
	msgBadCredentials = "Error: Bad credentials"
	msgInternal       = "Error: Internal server error"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Message string `json:"message"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"message": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Message: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, "Error: " + verr.Error()
	}

	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusBadRequest, "Error: Username is already taken!"
	case errors.Is(err, domain.ErrEmailInUse):
		return http.StatusBadRequest, "Error: Email is already in use!"
	case errors.Is(err, domain.ErrRoleNotFound):
		return http.StatusBadRequest, "Error: Role is not found."
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgBadCredentials
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Error: Access is denied"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "Error: Too many failed sign-in attempts, try again later."
	}

	// Echo's own errors (404 from router, 405, rate limiter, body limit).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			logUnexpected(log, c, err)
			return he.Code, msgInternal
		}
		return he.Code, "Error: " + fmt.Sprintf("%v", he.Message)
	}

	logUnexpected(log, c, err)
	return http.StatusInternalServerError, msgInternal
}

func logUnexpected(log zerolog.Logger, c echo.Context, err error) {
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")
}
