package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const defaultTimeout = 10 * time.Second

// Dialect selects the SQL flavour and database/sql driver.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func (d Dialect) driverName() string { return string(d) }

// Valid reports whether d is a supported dialect.
func (d Dialect) Valid() bool { return d == Postgres || d == SQLite }

// rebind rewrites ? placeholders into $n for postgres.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Config captures what is needed to open a relational credential store.
type Config struct {
	Dialect Dialect
	// DSN is the postgres connection URL, or the sqlite database file path.
	DSN     string
	Timeout time.Duration
}

// DataSource returns the driver specific data source name.
func (c Config) DataSource() string {
	if c.Dialect == SQLite {
		return SQLiteDSN(c.DSN)
	}
	return c.DSN
}

// SQLiteDSN turns a file path into a modernc DSN with foreign keys enabled.
func SQLiteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// Open opens the database and verifies connectivity with a ping.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if !cfg.Dialect.Valid() {
		return nil, fmt.Errorf("sqlstore: unsupported dialect %q", cfg.Dialect)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	db, err := sql.Open(cfg.Dialect.driverName(), cfg.DataSource())
	if err != nil {
		return nil, fmt.Errorf("sqlstore open: %w", err)
	}

	if cfg.Dialect == SQLite {
		// a single writer avoids SQLITE_BUSY under concurrent signups
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore ping: %w", err)
	}
	return db, nil
}
