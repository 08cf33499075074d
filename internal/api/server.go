// Package api implements the admin/ops HTTP server. It listens on a
// separate port from the gateway routes and is not part of the proxied
// surface.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nodegate/internal/api/handlers"
	"nodegate/internal/config"
	"nodegate/internal/gateway"
	"nodegate/internal/logging"
	"nodegate/internal/middleware"
)

// Server represents the admin HTTP server
type Server struct {
	router *gin.Engine
	cfg    *config.Config
	srv    *http.Server
}

// NewServer creates a new admin server instance
func NewServer(cfg *config.Config, gw *gateway.Server) *Server {
	// Set release mode for production
	gin.SetMode(gin.ReleaseMode)

	// Disable Gin's default logger entirely because we're using our custom logger
	gin.DisableConsoleColor()
	gin.DefaultWriter = io.Discard

	// Create a new engine without default middleware
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		RPS:   10, // 10 requests per second
		Burst: 20, // Allow bursts of up to 20 requests
	}))
	router.Use(middleware.RequestLogger())

	healthHandler := handlers.NewHealthHandler(cfg)
	statusHandler := handlers.NewStatusHandler(cfg, gw)

	router.GET("/health", healthHandler.Check)
	router.GET("/status", statusHandler.Status)
	router.POST("/auth/reload", statusHandler.ReloadAuth)

	return &Server{
		router: router,
		cfg:    cfg,
	}
}

// Start starts the admin server in the background
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              "127.0.0.1:" + s.cfg.AdminPort,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger := logging.GetGlobalLogger()
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Admin server stopped: %v", err)
		}
	}()
	logger.Info("Admin API started on 127.0.0.1:%s", s.cfg.AdminPort)

	return nil
}

// Stop gracefully shuts down the admin server
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
