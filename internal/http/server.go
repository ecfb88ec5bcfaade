// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	accounthttp "github.com/assignment-sets/audio-saas-backend/internal/account/http"
	artisthttp "github.com/assignment-sets/audio-saas-backend/internal/artist/http"
	"github.com/assignment-sets/audio-saas-backend/internal/config"
	"github.com/assignment-sets/audio-saas-backend/internal/metrics"
)

// Server represents the public API HTTP server.
type Server struct {
	db     *sql.DB
	router *gin.Engine
	server *http.Server
	logger *slog.Logger
	host   string
	port   int
}

// NewServer creates a new Server. The router is built separately via
// SetupRouter so tests can exercise handlers without the full dependency
// graph.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:     db,
		logger: logger,
		host:   host,
		port:   port,
	}
}

// SetupRouter builds the full API router with middleware and route
// registrations. The meter provider is optional; pass nil to disable HTTP
// metrics.
func (s *Server) SetupRouter(
	cfg *config.Config,
	artistHandler *artisthttp.ArtistHandler,
	accountHandler *accounthttp.AccountHandler,
	meterProvider metric.MeterProvider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if mw := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); mw != nil {
		router.Use(mw)
	}

	if meterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(meterProvider, cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	// Service-to-service route, called by the identity provider hook.
	v1.POST("/accounts/sync",
		InternalTokenMiddleware(cfg.InternalAPIToken, s.logger),
		accountHandler.SyncHandler)

	// Public profile lookup, no identity required.
	v1.GET("/artists/:name", artistHandler.GetByNameHandler)

	authed := v1.Group("")
	authed.Use(IdentityMiddleware(s.logger))
	if cfg.RateLimitEnabled {
		authed.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	authed.GET("/accounts/:id", accountHandler.GetHandler)
	authed.PATCH("/accounts/:id", accountHandler.UpdateHandler)
	authed.DELETE("/accounts/:id", accountHandler.DeleteHandler)

	authed.POST("/artists", artistHandler.CreateHandler)
	authed.GET("/artists/id/:id", artistHandler.GetByIDHandler)
	authed.PATCH("/artists/id/:id", artistHandler.UpdateHandler)

	s.router = router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic, checking
// downstream components.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	ready := true

	if s.db == nil {
		components["database"] = "error"
		ready = false
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("readiness check: database ping failed", slog.Any("error", err))
			components["database"] = "error"
			ready = false
		} else {
			components["database"] = "ok"
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}

// Start starts the HTTP server. Blocks until the server stops.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.host, s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	if s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}
