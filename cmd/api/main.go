// @title           MyUnity Auth API
// @version         1.0
// @description     Username/password authentication with stateless bearer tokens and role based access.
// @BasePath        /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/myunity/auth-service/docs"
	"github.com/myunity/auth-service/internal/api"
	"github.com/myunity/auth-service/internal/api/handler"
	"github.com/myunity/auth-service/internal/core/service"
	redisdb "github.com/myunity/auth-service/internal/infrastructure/db/redis"
	"github.com/myunity/auth-service/internal/pkg/config"
	"github.com/myunity/auth-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger is not configured yet
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Error().Err(err).Msg("invalid configuration")
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "auth-service",
		Version: version,
	})

	store, err := openStore(ctx, cfg, logger.Component("store"))
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.Store.Driver).Msg("credential store unavailable")
		return err
	}
	defer store.Close()

	readiness := map[string]handler.Pinger{"store": store}

	tokens := service.NewTokenService([]byte(cfg.JWT.Secret), cfg.JWT.Expiration, cfg.JWT.Issuer, logger.Component("token"))
	hasher := service.NewBcryptHasher(cfg.JWT.BcryptCost)

	var opts []service.Option
	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable")
			return err
		}
		defer rdb.Close()

		opts = append(opts, service.WithLoginThrottle(
			redisdb.NewLoginThrottle(rdb, cfg.Signin.MaxFailures, cfg.Signin.Lockout),
		))
		readiness["redis"] = redisdb.Pinger{Client: rdb}
		log.Info().Str("addr", cfg.Redis.Addr).Int("max_failures", cfg.Signin.MaxFailures).Msg("signin lockout enabled")
	}

	proxies, err := cfg.HTTP.TrustedProxyNets()
	if err != nil {
		return err
	}

	auth := service.NewAuthService(store, hasher, tokens, logger.Component("auth"), opts...)

	e := api.NewRouter(api.Dependencies{
		Log:            logger.Component("http"),
		Auth:           auth,
		Tokens:         tokens,
		Principals:     auth,
		Users:          store,
		Readiness:      readiness,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		TrustedProxies: proxies,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			log.Error().Err(err).Msg("server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
