package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myunity/auth-service/internal/core/domain"
	"github.com/myunity/auth-service/internal/pkg/config"
)

const testSecret = "main-test-secret-main-test-secret"

func TestRun_InvalidConfiguration(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "0")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "auth.db"))
	t.Setenv("LOG_LEVEL", "error")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + 5*time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestOpenStore_SQLite(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "auth.db"),
	}}

	store, err := openStore(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
	role, err := store.FindRoleByName(context.Background(), domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, role.Name)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := openStore(context.Background(), &config.Config{Store: config.StoreConfig{Driver: "oracle"}}, zerolog.Nop())
	assert.Error(t, err)
}
