// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/founderstab/founders-tab/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RequestObserver measures HTTP requests. RequestStarted returns the
// function to call once the response status is known.
type RequestObserver interface {
	RequestStarted() func(method, path, status string)
	Handler() http.Handler
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Services bundles the application services the API exposes
type Services struct {
	Expenses      service.ExpenseService
	Workflow      service.WorkflowService
	Notifications service.NotificationService
	Nudges        service.NudgeService
	Settings      service.SettingsService
	Reports       service.ReportService
}

// Server is the HTTP server adapter
type Server struct {
	config      ServerConfig
	httpServer  *http.Server
	router      *gin.Engine
	services    Services
	observer    RequestObserver
	rateLimiter *RateLimiter
	logger      Logger
}

// Option configures optional server collaborators
type Option func(*Server)

// WithObserver exposes /metrics and measures every request
func WithObserver(observer RequestObserver) Option {
	return func(s *Server) {
		s.observer = observer
	}
}

// WithRateLimiter throttles /api requests per acting user
func WithRateLimiter(limiter *RateLimiter) Option {
	return func(s *Server) {
		s.rateLimiter = limiter
	}
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger, opts ...Option) *Server {
	// Set gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(server)
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.router.Use(gin.Recovery())

	s.router.Use(requestIDMiddleware())

	// Logging middleware
	s.router.Use(s.loggingMiddleware())

	if s.observer != nil {
		s.router.Use(metricsMiddleware(s.observer))
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.services, s.logger)

	// Health check
	s.router.GET("/health", handlers.HealthCheck)

	if s.observer != nil {
		s.router.GET("/metrics", gin.WrapH(s.observer.Handler()))
	}

	// API routes
	api := s.router.Group("/api")
	api.Use(actorMiddleware())
	if s.rateLimiter != nil {
		api.Use(s.rateLimiter.Middleware())
	}
	{
		// Expenses
		api.POST("/expenses", handlers.CreateExpense)
		api.GET("/expenses", handlers.ListExpenses)
		api.GET("/expenses/:id", handlers.GetExpense)
		api.GET("/expenses/:id/history", handlers.GetHistory)
		api.GET("/expenses/:id/notifications", handlers.GetNotifications)

		// Workflow actions
		api.POST("/expenses/:id/approve", handlers.Approve)
		api.POST("/expenses/:id/reject", handlers.Reject)
		api.POST("/expenses/:id/request-withdrawal", handlers.RequestWithdrawal)
		api.POST("/expenses/:id/approve-withdrawal", handlers.ApproveWithdrawal)
		api.POST("/expenses/:id/reject-withdrawal", handlers.RejectWithdrawal)
		api.POST("/expenses/:id/confirm-receipt", handlers.ConfirmReceipt)
		api.POST("/expenses/:id/nudge", handlers.Nudge)

		// Company
		api.GET("/company/settings", handlers.GetSettings)
		api.PUT("/company/settings", handlers.UpdateSettings)

		// Reports
		api.GET("/reports/expenses.xlsx", handlers.ExportExpenses)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
