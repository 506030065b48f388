// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/rental-billing/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Metrics records request latencies and exposes the scrape endpoint.
// metrics.Recorder satisfies it.
type Metrics interface {
	ObserveHTTP(method, route string, code int, elapsed time.Duration)
	Handler() http.Handler
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
	Version        string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxUploadBytes: 10 << 20,
		Version:        "dev",
	}
}

// Services groups the application services the API exposes
type Services struct {
	Billing   service.BillingService
	Ledger    service.LedgerService
	Evidence  service.EvidenceService
	Statement service.StatementService
	Review    service.ReviewService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	tokens     *TokenIssuer
	metrics    Metrics
	logger     Logger
}

// NewServer creates a new HTTP server with the given services.
// metrics may be nil, in which case /metrics is not served.
func NewServer(
	config ServerConfig,
	services Services,
	tokens *TokenIssuer,
	metrics Metrics,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.MaxMultipartMemory = config.MaxUploadBytes

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		tokens:   tokens,
		metrics:  metrics,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	if s.metrics != nil {
		s.router.Use(s.metricsMiddleware())
	}
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// metricsMiddleware observes latency per route template so ids do not
// explode label cardinality
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.services, s.config.Version, s.config.MaxUploadBytes, s.logger)

	s.router.GET("/health", handlers.HealthCheck)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/api")
	api.Use(s.authMiddleware())
	{
		// Bills
		api.POST("/bills", handlers.CreateBill)
		api.GET("/bills", handlers.ListBills)
		api.GET("/bills/:id", handlers.GetBill)
		api.GET("/bills/:id/sections", handlers.GetSections)
		api.POST("/bills/:id/paid", handlers.MarkPaid)
		api.POST("/bills/:id/overdue", handlers.MarkOverdue)
		api.POST("/bills/:id/cancel", handlers.CancelBill)
		api.GET("/bills/:id/statement.xlsx", handlers.ExportStatement)

		// Payment ledger
		api.GET("/bills/:id/payments", handlers.GetPayments)
		api.POST("/bills/:id/claims", handlers.SubmitClaim)
		api.POST("/bills/:id/claims/:claimId/verify", handlers.VerifyClaim)
		api.GET("/bills/:id/claims/:claimId/review", handlers.GetReview)

		// Evidence
		api.POST("/bills/:id/evidence", handlers.UploadEvidence)
		api.GET("/evidence/*path", handlers.GetEvidence)

		// Live calculator
		api.POST("/calculator/utility", handlers.CalculateUtility)
		api.POST("/calculator/total", handlers.CalculateTotal)
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

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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
