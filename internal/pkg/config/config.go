package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const minSecretLength = 32

// Store drivers accepted in STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=production"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT    JWTConfig
	Store  StoreConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Signin SigninConfig
	HTTP   HTTPConfig
}

type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET"`
	Expiration time.Duration `env:"JWT_EXPIRATION, default=24h"`
	Issuer     string        `env:"JWT_ISSUER,     default=myunity-auth"`
	BcryptCost int           `env:"BCRYPT_COST,    default=10"`
}

type StoreConfig struct {
	Driver      string `env:"STORE_DRIVER, default=sqlite"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH,  default=auth.db"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth"`
}

// RedisConfig enables the signin lockout when Addr is set.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

type SigninConfig struct {
	MaxFailures int           `env:"SIGNIN_MAX_FAILURES, default=5"`
	Lockout     time.Duration `env:"SIGNIN_LOCKOUT,      default=15m"`
}

type HTTPConfig struct {
	RateLimitRPS float64  `env:"RATE_LIMIT_RPS, default=10"`
	CORSOrigins  []string `env:"CORS_ORIGINS,   default=http://localhost:8081"`
	// TrustedProxies lists the CIDRs allowed to set X-Forwarded-For. When
	// empty the client IP is the socket peer address.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// TrustedProxyNets parses TrustedProxies.
func (h HTTPConfig) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(h.TrustedProxies))
	for _, raw := range h.TrustedProxies {
		_, ipnet, err := net.ParseCIDR(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
		}
		nets = append(nets, ipnet)
	}
	return nets, nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWT.Secret) < minSecretLength {
		errs = append(errs, fmt.Errorf("config: JWT_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.JWT.Expiration <= 0 {
		errs = append(errs, errors.New("config: JWT_EXPIRATION must be positive"))
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("config: DATABASE_URL is required for the postgres store"))
		}
	case DriverSQLite, DriverMongo:
	default:
		errs = append(errs, fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver))
	}
	if _, err := c.HTTP.TrustedProxyNets(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether ENV selects developer defaults such as
// pretty console logs.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}
