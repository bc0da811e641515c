package domain

import "context"

// Principal is the request-scoped projection of an authenticated user.
type Principal struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Authorities  []RoleName
}

// NewPrincipal builds a Principal from a user and its loaded roles.
func NewPrincipal(u *User) *Principal {
	return &Principal{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Authorities:  u.RoleNames(),
	}
}

// HasAnyAuthority reports whether the principal holds at least one of roles.
func (p *Principal) HasAnyAuthority(roles ...RoleName) bool {
	for _, held := range p.Authorities {
		for _, want := range roles {
			if held == want {
				return true
			}
		}
	}
	return false
}

// AuthorityNames returns the authorities as plain strings for responses.
func (p *Principal) AuthorityNames() []string {
	out := make([]string, 0, len(p.Authorities))
	for _, a := range p.Authorities {
		out = append(out, string(a))
	}
	return out
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
