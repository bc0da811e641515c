package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/myunity/auth-service/internal/core/domain"
)

// Access is the authentication requirement of a rule.
type Access int

const (
	// Authenticated requires a principal on the request context.
	Authenticated Access = iota
	// PermitAll lets anonymous requests through.
	PermitAll
)

// Rule binds a path pattern to an access requirement. A pattern ending in
// "/**" matches the prefix itself and everything below it; any other pattern
// matches the path exactly.
type Rule struct {
	Pattern string
	Access  Access
}

func (r Rule) matches(path string) bool {
	if prefix, ok := strings.CutSuffix(r.Pattern, "/**"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return path == r.Pattern
}

// Policy is an ordered rule table; the first matching rule wins and paths
// matching no rule require authentication.
type Policy struct {
	Rules []Rule
}

// DefaultPolicy opens the auth endpoints and operational routes and requires
// authentication everywhere else.
func DefaultPolicy() Policy {
	return Policy{Rules: []Rule{
		{Pattern: "/api/auth/**", Access: PermitAll},
		{Pattern: "/health/**", Access: PermitAll},
		{Pattern: "/metrics", Access: PermitAll},
		{Pattern: "/swagger/**", Access: PermitAll},
	}}
}

// AccessFor returns the requirement for path.
func (p Policy) AccessFor(path string) Access {
	for _, rule := range p.Rules {
		if rule.matches(path) {
			return rule.Access
		}
	}
	return Authenticated
}

// Enforce rejects unauthenticated requests to protected paths. It must run
// after Authenticate.
func (p Policy) Enforce() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if p.AccessFor(c.Request().URL.Path) == PermitAll {
				return next(c)
			}
			if _, ok := domain.PrincipalFromContext(c.Request().Context()); !ok {
				return domain.ErrUnauthenticated
			}
			return next(c)
		}
	}
}
