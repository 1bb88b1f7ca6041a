// Package http assembles the gin engine and the HTTP server of FreshGuard.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/FreshGuard/internal/config"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FreshGuard/internal/interfaces/http/handlers"
	"github.com/turtacn/FreshGuard/internal/interfaces/http/middleware"
)

// APIPrefix is the base path of the expiry API.
const APIPrefix = "/api/v1/expiry"

// RouterConfig holds everything NewRouter mounts. Nil handlers are skipped.
type RouterConfig struct {
	Server        config.ServerConfig
	ExpiryHandler *handlers.ExpiryHandler
	HealthHandler *handlers.HealthHandler
	// Identity defaults to the AdminHeader of Server.
	Identity         middleware.IdentityProvider
	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	// MetricsPath defaults to /metrics.
	MetricsPath string
	Metrics     *prometheus.AppMetrics
}

// NewRouter builds the gin engine. Middleware order: recovery, request id,
// CORS, metrics, logging, identity.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Identity == nil {
		cfg.Identity = middleware.NewHeaderIdentity(cfg.Server.AdminHeader)
	}
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID())

	cors := middleware.DefaultCORSConfig(cfg.Server.AdminHeader)
	cors.AllowedOrigins = cfg.Server.CORSOrigins
	r.Use(middleware.CORS(cors))

	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.RequestLogging(cfg.Logger.Named("http"), middleware.DefaultLoggingConfig()))
	r.Use(middleware.Identify(cfg.Identity))

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsCollector.Handler()))
	}
	if cfg.ExpiryHandler != nil {
		cfg.ExpiryHandler.RegisterRoutes(r.Group(APIPrefix))
	}
	return r
}
