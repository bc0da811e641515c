package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/myunity/auth-service/internal/core/ports"
	mongostore "github.com/myunity/auth-service/internal/infrastructure/db/mongo"
	"github.com/myunity/auth-service/internal/infrastructure/db/sqlstore"
	"github.com/myunity/auth-service/internal/pkg/config"
)

// closableStore is a credential store that owns a connection pool.
type closableStore interface {
	ports.CredentialStore
	Close() error
}

type sqlBacked struct {
	*sqlstore.Store
	db *sql.DB
}

func (s sqlBacked) Close() error { return s.db.Close() }

type mongoBacked struct {
	*mongostore.CredentialStore
	client *mongodriver.Client
}

func (s mongoBacked) Close() error { return s.client.Disconnect(context.Background()) }

// openStore connects the configured credential store and makes sure the
// schema and role catalogue exist.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (closableStore, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres, config.DriverSQLite:
		sc := sqlstore.Config{Dialect: sqlstore.Postgres, DSN: cfg.Store.DatabaseURL}
		if cfg.Store.Driver == config.DriverSQLite {
			sc = sqlstore.Config{Dialect: sqlstore.SQLite, DSN: cfg.Store.SQLitePath}
		}

		if err := sqlstore.ApplyMigrations(sc, log); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		db, err := sqlstore.Open(ctx, sc)
		if err != nil {
			return nil, err
		}
		return sqlBacked{Store: sqlstore.NewStore(db, sc.Dialect), db: db}, nil

	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		store := mongostore.NewCredentialStore(db)
		if err := store.Bootstrap(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("bootstrap mongo: %w", err)
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo store ready")
		return mongoBacked{CredentialStore: store, client: client}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
