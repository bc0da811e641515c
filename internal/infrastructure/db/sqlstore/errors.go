package sqlstore

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/myunity/auth-service/internal/core/domain"
)

const (
	pqUniqueViolation = pq.ErrorCode("23505")

	usernameConstraint = "uk_users_username"
	emailConstraint    = "uk_users_email"
)

// uniqueViolation maps a unique constraint failure on users to the matching
// domain error, or returns nil for anything else.
func uniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return classify(pqErr.Constraint + " " + pqErr.Detail)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")) {
			return classify(liteErr.Error())
		}
	}
	return nil
}

func classify(text string) error {
	switch {
	case strings.Contains(text, usernameConstraint), strings.Contains(text, "users.username"), strings.Contains(text, "(username)"):
		return domain.ErrUsernameTaken
	case strings.Contains(text, emailConstraint), strings.Contains(text, "users.email"), strings.Contains(text, "(email)"):
		return domain.ErrEmailInUse
	default:
		return nil
	}
}
