// Package metrics defines the custom Prometheus metrics of the auth service.
// It is the single source of truth for metric names, labels, and help strings.
//
// Build one Auth per registry with New; a nil *Auth records nothing, which
// keeps handlers and middleware usable in tests without a registry.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/myunity/auth-service/internal/core/domain"
)

const namespace = "auth"

// Auth groups the counters for the authentication pipeline.
type Auth struct {
	// Signups counts signup attempts.
	// Label:
	//   - result: "success", "username_taken", "email_in_use", "role_not_found", "invalid", "error"
	Signups *prometheus.CounterVec

	// Signins counts signin attempts.
	// Label:
	//   - result: "success", "bad_credentials", "locked", "invalid", "error"
	Signins *prometheus.CounterVec

	// TokenVerifications counts bearer tokens seen by the authentication filter.
	// Label:
	//   - result: "valid", "invalid", "unknown_subject", "error"
	TokenVerifications *prometheus.CounterVec
}

// New registers the auth metrics with reg.
func New(reg prometheus.Registerer) *Auth {
	factory := promauto.With(reg)
	return &Auth{
		Signups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signups_total",
				Help:      "Total number of signup attempts, by result.",
			},
			[]string{"result"},
		),
		Signins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signins_total",
				Help:      "Total number of signin attempts, by result.",
			},
			[]string{"result"},
		),
		TokenVerifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_verifications_total",
				Help:      "Total number of bearer tokens checked by the authentication filter, by result.",
			},
			[]string{"result"},
		),
	}
}

// ObserveSignup records the outcome of a signup.
func (m *Auth) ObserveSignup(err error) {
	if m == nil {
		return
	}
	m.Signups.WithLabelValues(signupResult(err)).Inc()
}

// ObserveSignin records the outcome of a signin.
func (m *Auth) ObserveSignin(err error) {
	if m == nil {
		return
	}
	m.Signins.WithLabelValues(signinResult(err)).Inc()
}

// ObserveToken records a token verification result label.
func (m *Auth) ObserveToken(result string) {
	if m == nil {
		return
	}
	m.TokenVerifications.WithLabelValues(result).Inc()
}

func signupResult(err error) string {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrUsernameTaken):
		return "username_taken"
	case errors.Is(err, domain.ErrEmailInUse):
		return "email_in_use"
	case errors.Is(err, domain.ErrRoleNotFound):
		return "role_not_found"
	case errors.As(err, &verr):
		return "invalid"
	default:
		return "error"
	}
}

func signinResult(err error) string {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "bad_credentials"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return "locked"
	case errors.As(err, &verr):
		return "invalid"
	default:
		return "error"
	}
}
