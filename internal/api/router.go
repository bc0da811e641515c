package api

import (
	"net"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"github.com/myunity/auth-service/internal/api/handler"
	"github.com/myunity/auth-service/internal/api/metrics"
	"github.com/myunity/auth-service/internal/api/middleware"
	"github.com/myunity/auth-service/internal/core/domain"
	"github.com/myunity/auth-service/internal/core/ports"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Log        zerolog.Logger
	Auth       ports.AuthService
	Tokens     middleware.TokenVerifier
	Principals ports.PrincipalLoader
	Users      ports.UserDirectory
	// Readiness lists the dependencies pinged by GET /health/ready.
	Readiness map[string]handler.Pinger

	CORSOrigins []string
	// TrustedProxies may set X-Forwarded-For; with none the socket peer is
	// the client IP.
	TrustedProxies []*net.IPNet
	// RateLimitRPS bounds requests per client IP on /api/auth; zero disables it.
	RateLimitRPS float64

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.IPExtractor = ipExtractor(deps.TrustedProxies)

	authMetrics := metrics.New(deps.Registerer)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.Secure())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: deps.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: deps.Registerer,
	}))

	// --- Security pipeline: resolve the principal, then apply the rule table ---
	e.Use(middleware.Authenticate(deps.Tokens, deps.Principals, authMetrics, deps.Log))
	e.Use(middleware.DefaultPolicy().Enforce())

	// --- Auth routes (public) ---
	authHandler := handler.NewAuthHandler(deps.Auth, authMetrics)
	auth := e.Group("/api/auth")
	if deps.RateLimitRPS > 0 {
		auth.Use(rateLimiter(deps.RateLimitRPS))
	}
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/signin", authHandler.Signin)
	auth.POST("/signout", authHandler.Signout)

	// --- Role gated content ---
	content := handler.NewContentHandler()
	board := e.Group("/api/test")
	board.GET("/user", content.UserBoard, middleware.RequireRoles(domain.RoleUser, domain.RoleModerator, domain.RoleAdmin))
	board.GET("/mod", content.ModeratorBoard, middleware.RequireRoles(domain.RoleModerator))
	board.GET("/admin", content.AdminBoard, middleware.RequireRoles(domain.RoleAdmin))

	// --- Accounts ---
	users := handler.NewUserHandler(deps.Users)
	e.GET("/api/users/me", users.Me)
	e.GET("/api/admin/users", users.List, middleware.RequireRoles(domain.RoleAdmin))

	// --- Health probes (no auth required) ---
	health := handler.NewHealthHandler(deps.Readiness, deps.Log)
	e.GET("/health", health.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", health.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Status >= 500 {
				event = log.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

// ipExtractor resolves the client IP used by the rate limiter and request
// log. Forwarding headers count only when the peer is a trusted proxy.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func rateLimiter(rps float64) echo.MiddlewareFunc {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(rps),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
	})
}
