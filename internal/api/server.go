// Package api exposes trades and analytics over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradertrackr/internal/config"
	"tradertrackr/internal/observability"
)

// NewRouter wires every route. Routes under /api require a session token.
func NewRouter(h *Handler, jwtSecret []byte, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(observability.Handler()))

	api := router.Group("/api", JWTAuth(jwtSecret))
	{
		api.GET("/instruments", h.Instruments)

		api.GET("/trades", h.ListTrades)
		api.POST("/trades", h.CreateTrade)
		api.DELETE("/trades", h.ClearTrades)
		api.GET("/trades/export", h.ExportTrades)
		api.POST("/trades/clear/otp", h.RequestClearCode)
		api.GET("/trades/:id", h.GetTrade)
		api.PUT("/trades/:id", h.UpdateTrade)
		api.DELETE("/trades/:id", h.DeleteTrade)

		api.GET("/analytics", h.Analytics)
		api.GET("/calendar", h.Calendar)
		api.GET("/ws/dashboard", h.DashboardSocket)
	}
	return router
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if userID := UserID(c); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("Request completed", fields...)
			return
		}
		log.Debug("Request completed", fields...)
	}
}

// Server runs the HTTP API.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// NewServer creates a Server listening on the configured port.
func NewServer(cfg config.Server, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.Named("api-server"),
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start runs the HTTP server in a new goroutine. Fatal listen errors are sent on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server failed", zap.Error(err))
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}
