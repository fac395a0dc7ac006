// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/stwalsh4118/gravmusic/internal/api"
	"github.com/stwalsh4118/gravmusic/internal/browser"
	"github.com/stwalsh4118/gravmusic/internal/config"
	"github.com/stwalsh4118/gravmusic/internal/db"
	"github.com/stwalsh4118/gravmusic/internal/logger"
	"github.com/stwalsh4118/gravmusic/internal/middleware"
	"github.com/stwalsh4118/gravmusic/internal/transport"
)

const heartbeatInterval = 15 * time.Second

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	db         *db.DB
	controller *transport.Controller
	resource   *browser.Resource
	router     *gin.Engine
	server     *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, database *db.DB, controller *transport.Controller, resource *browser.Resource) *Server {
	return &Server{
		config:     cfg,
		db:         database,
		controller: controller,
		resource:   resource,
	}
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestLogger("/api/player/events"))
	s.router.Use(gin.Recovery())
	s.router.Use(s.corsMiddleware())

	apiGroup := s.router.Group("/api")

	api.SetupHealthRoutes(apiGroup, s.db, s.resource, db.NewDurationRepository(s.db))
	api.SetupCatalogRoutes(apiGroup, s.controller)
	api.SetupPlayerRoutes(apiGroup, s.controller)
	api.SetupStreamRoutes(apiGroup, s.resource, heartbeatInterval)

	// Everything else is the media library
	s.router.NoRoute(api.NewFileHandler(s.config.Media.LibraryPath).Serve)
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	origins := s.config.Server.CORSOrigins
	if len(origins) == 0 || lo.Contains(origins, "*") {
		return cors.Default()
	}

	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AllowHeaders = append(cfg.AllowHeaders, middleware.RequestIDHeader)
	cfg.ExposeHeaders = []string{middleware.RequestIDHeader}
	return cors.New(cfg)
}

// Handler returns the router, building it on first use
func (s *Server) Handler() http.Handler {
	if s.router == nil {
		s.setupRouter()
	}
	return s.router
}

// Start starts the transport controller and the HTTP server
func (s *Server) Start() error {
	if err := s.controller.Start(); err != nil {
		return fmt.Errorf("failed to start transport controller: %w", err)
	}

	s.server = &http.Server{
		Addr:           s.config.Server.Addr(),
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Str("library", s.config.Media.LibraryPath).
		Msg("Starting HTTP server")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Shutting down server gracefully")

	if s.controller != nil {
		s.controller.Stop()
	}
	// Open command streams never go idle on their own
	if s.resource != nil {
		s.resource.Close()
	}

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	logger.Log.Info().Msg("Server stopped")
	return nil
}
