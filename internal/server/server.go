package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kevingruber/turbo-cache/internal/artifact"
	"github.com/kevingruber/turbo-cache/internal/config"
	"github.com/kevingruber/turbo-cache/internal/handler"
	"github.com/kevingruber/turbo-cache/internal/middleware"
	"github.com/kevingruber/turbo-cache/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// artifactPrefixes are the mount points of the artifact API. Turborepo
// clients call the versioned one.
var artifactPrefixes = []string{"/v8/artifacts", "/artifacts"}

// Server represents the HTTP server.
type Server struct {
	cfg     *config.Config
	router  *gin.Engine
	storage storage.Storage
	logger  zerolog.Logger
	metrics *middleware.Metrics
}

// New creates a new server instance.
func New(cfg *config.Config, store storage.Storage, logger zerolog.Logger) (*Server, error) {
	// Set Gin mode based on log level
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		router:  gin.New(),
		storage: store,
		logger:  logger,
	}

	if cfg.Metrics.Enabled {
		metrics, err := middleware.NewMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		s.metrics = metrics
	}

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

func corsConfig() cors.Config {
	return cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			"Authorization",
			"Content-Type",
			"Content-Length",
			"User-Agent",
			"x-artifact-duration",
			"x-artifact-tag",
			"x-artifact-client-ci",
			"x-artifact-client-interactive",
		},
		MaxAge: 12 * time.Hour,
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	s.router.Use(cors.New(corsConfig()))
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestLogger(s.logger))
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware())
	}

	// Health endpoints (no auth required)
	s.router.GET("/ping", s.handlePing)
	s.router.GET("/health", s.handleHealth)

	if s.cfg.Metrics.Enabled {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	s.router.GET("/turborepo/token", handler.Token)

	artifactHandler, err := handler.NewArtifactHandler(
		artifact.NewService(s.storage, s.logger),
		s.cfg.MaxEntrySizeBytes(),
		s.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact handler: %w", err)
	}

	auth := middleware.BearerAuth(s.cfg.Auth.Tokens)
	for _, prefix := range artifactPrefixes {
		group := s.router.Group(prefix)
		group.GET("/status", artifactHandler.Status)

		protected := group.Group("", auth)
		protected.POST("/events", artifactHandler.Events)
		protected.HEAD("/:id", artifactHandler.Head)
		protected.GET("/:id", artifactHandler.Get)
		protected.PUT("/:id", artifactHandler.Put)
	}
	return nil
}

// handlePing is a simple liveness endpoint.
func (s *Server) handlePing(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

// handleHealth checks that the storage backend is reachable.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.storage.Ping(c.Request.Context()); err != nil {
		s.logger.Error().Err(err).Msg("health check failed: storage unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"storage": "unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"storage": "connected",
	})
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		var err error
		if s.cfg.Server.TLS.Enabled {
			s.logger.Info().
				Str("addr", addr).
				Str("mode", "https").
				Msg("starting server with TLS")
			err = srv.ListenAndServeTLS(s.cfg.Server.TLS.CertFile, s.cfg.Server.TLS.KeyFile)
		} else {
			s.logger.Info().
				Str("addr", addr).
				Str("mode", "http").
				Msg("starting server")
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Router returns the Gin router for testing purposes.
func (s *Server) Router() *gin.Engine {
	return s.router
}
