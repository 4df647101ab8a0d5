// Package http assembles the gin route tree and the HTTP server around it.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/HSCode-Intelligence/internal/config"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HSCode-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/HSCode-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree.
type RouterConfig struct {
	ClassifyHandler *handlers.ClassifyHandler
	HealthHandler   *handlers.HealthHandler

	// MetricsHandler serves /metrics; nil disables the endpoint.
	MetricsHandler http.Handler
	// HTTPMetrics feeds the per-request instrumentation; nil disables it.
	HTTPMetrics middleware.HTTPMetrics

	Logger logging.Logger
	Mode   string
}

// NewRouter constructs the complete route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if cfg.HTTPMetrics != nil {
		r.Use(middleware.Metrics(cfg.HTTPMetrics))
	}
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	if cfg.ClassifyHandler != nil {
		api.POST("/classify", cfg.ClassifyHandler.Classify)
	}

	return r
}

// ServerModeFromConfig maps the server config mode onto a gin mode string.
func ServerModeFromConfig(cfg config.ServerConfig) string {
	switch cfg.Mode {
	case "debug":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
