package domain

import "time"

// User models a registered account. PasswordHash always holds a bcrypt hash.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleNames returns the names of the user's roles in stored order.
func (u *User) RoleNames() []RoleName {
	names := make([]RoleName, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}
