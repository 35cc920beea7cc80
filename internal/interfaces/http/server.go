// Package http provides the HTTP adapter for the trip workflow.
// Handlers translate requests into application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/business-trip/internal/application/port"
	"github.com/garyjia/business-trip/internal/application/service"
)

const (
	// ActorHeader carries the ID of the calling user
	ActorHeader = "X-User-ID"
	actorKey    = "actor"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Mode            string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Mode:            gin.ReleaseMode,
	}
}

// Services groups the application services exposed over HTTP
type Services struct {
	Trips       service.TripService
	Submissions service.SubmissionService
	Ledger      service.LedgerService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	mu         sync.Mutex
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	users      port.UserRepository
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, users port.UserRepository, logger Logger) *Server {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	server := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		users:    users,
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
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// actorMiddleware resolves the X-User-ID header to a user. Requests
// without a known user are refused.
func (s *Server) actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(ActorHeader)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Error: "missing or invalid " + ActorHeader})
			return
		}

		user, err := s.users.GetByID(c.Request.Context(), id)
		if err != nil {
			s.logger.Error("Failed to resolve actor", "user_id", id, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{Error: "failed to resolve user"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Error: "unknown user"})
			return
		}

		c.Set(actorKey, user)
		c.Next()
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.logger)

	s.router.GET("/health", h.HealthCheck)

	// The form service posts without a user session
	s.router.POST("/formio/form/:uuid/submit", h.SubmitForm)

	authed := s.router.Group("/", s.actorMiddleware())
	authed.GET("/content/:model/:id/:field/:filename", h.DownloadDocument)

	api := authed.Group("/api")
	{
		api.GET("/ledger.xlsx", h.ExportLedger)

		api.POST("/trips", h.CreateTrip)
		api.GET("/trips/:id", h.GetTrip)

		api.POST("/trips/:id/submit", h.Submit)
		api.POST("/trips/:id/return", h.ReturnToEmployee)
		api.POST("/trips/:id/assign", h.AssignOrganizer)
		api.POST("/trips/:id/reject", h.Reject)
		api.POST("/trips/:id/cancel", h.Cancel)

		api.POST("/trips/:id/plan", h.SavePlan)
		api.POST("/trips/:id/organized", h.MarkOrganized)
		api.POST("/trips/:id/confirm-plan", h.ConfirmPlan)
		api.POST("/trips/:id/undo-plan", h.UndoPlanConfirmation)

		api.POST("/trips/:id/start", h.StartTrip)
		api.POST("/trips/:id/end", h.EndTrip)

		api.POST("/trips/:id/expenses", h.SubmitExpenses)
		api.POST("/trips/:id/recall-expenses", h.RecallExpenses)
		api.POST("/trips/:id/approve-expenses", h.ApproveExpenses)
		api.POST("/trips/:id/return-expenses", h.ReturnExpenses)
		api.POST("/trips/:id/undo-expense-approval", h.UndoExpenseApproval)

		api.POST("/trips/:id/force-state", h.ForceState)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// Stop gracefully stops the HTTP server. Calling it again is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
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
