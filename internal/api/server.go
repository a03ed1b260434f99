package api

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kleinvault/kleinvault/internal/config"
	apperrors "github.com/kleinvault/kleinvault/internal/errors"
	"github.com/kleinvault/kleinvault/internal/logging"
	"github.com/kleinvault/kleinvault/internal/metrics"
	"github.com/kleinvault/kleinvault/internal/models"
	"github.com/kleinvault/kleinvault/internal/store"
)

// Provisioner is the job-submission surface the server fronts. The
// orchestrator implements it.
type Provisioner interface {
	Submit(ctx context.Context, email, password, proxy, device string) (int64, error)
	Status(ctx context.Context, id int64) (*models.LoginJob, error)
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	config      config.ServerConfig
	apiConfig   config.APIConfig
	store       store.Store
	provisioner Provisioner
	metrics     *metrics.Metrics
	logger      *logging.Logger
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// Router returns the gin router for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics instance shared with the orchestrator.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, apiCfg config.APIConfig, st store.Store, p Provisioner, opts ...ServerOption) *Server {
	gin.SetMode(gin.ReleaseMode)

	requestsPerMinute := apiCfg.RateLimit.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = 600
	}
	burst := apiCfg.RateLimit.Burst
	if burst <= 0 {
		burst = 50
	}

	server := &Server{
		router:      gin.New(),
		config:      cfg,
		apiConfig:   apiCfg,
		store:       st,
		provisioner: p,
		rateLimiter: newIPRateLimiter(time.Minute/time.Duration(requestsPerMinute), burst),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.metrics == nil {
		server.metrics = metrics.NewMetrics("kleinvault")
	}
	if server.logger == nil {
		server.logger = logging.NewLogger()
	}

	server.router.HandleMethodNotAllowed = true
	server.router.Use(gin.Recovery())
	server.router.Use(rateLimitMiddleware(server.rateLimiter))
	server.router.Use(metrics.Middleware(server.metrics, server.logger))
	server.router.Use(loggingMiddleware(server.logger))

	server.setupRoutes()
	return server
}

// loggingMiddleware provides structured logging for all requests
func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = logging.GenerateCorrelationID()
		}

		ctx := logging.WithCorrelationID(c.Request.Context(), correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		duration := time.Since(start).Seconds()
		logger.InfoWithContext(ctx, "request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_seconds", duration,
		)
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Metrics and health are open; everything else sits behind the
	// optional API key.
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.router.GET("/health", s.handleHealth)

	var keys []string
	if s.apiConfig.Auth.Enabled {
		keys = s.apiConfig.Auth.APIKeys
	}
	authMiddleware := APIKeyAuth(keys, s.apiConfig.Auth.HeaderName, s.logger)

	base := s.apiConfig.BasePath
	if base == "" {
		base = "/api"
	}

	api := s.router.Group(base)
	api.Use(authMiddleware)
	{
		api.POST("/login", s.handleSubmitLogin)
		api.GET("/jobs", s.handleListJobs)
		api.GET("/jobs/:id", s.handleGetJob)
		api.GET("/accounts", s.handleListAccounts)
		api.GET("/messages", s.handleListMessages)
		api.POST("/messages", s.handleAppendMessage)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.HTTPPort)

	if s.httpServer == nil {
		s.httpServer = NewHTTPServer(addr, s.router)
	}

	s.logger.Info("starting HTTP server", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return &apperrors.ErrServerStart{Addr: addr, Err: err}
	}
	return nil
}

// StartWithServer starts the server with a pre-configured http.Server
func (s *Server) StartWithServer(srv *http.Server) error {
	s.httpServer = srv
	s.logger.Info("starting HTTP server", "addr", srv.Addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server, then closes the store.
// The order matters: in-flight handlers keep querying until the drain
// completes, so the database must outlive the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	var errList []error

	if s.httpServer != nil {
		s.logger.Info("shutting down HTTP server")
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err.Error())
			errList = append(errList, &apperrors.ErrServerShutdown{Err: err})
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errList = append(errList, fmt.Errorf("store close: %w", err))
		}
	}

	if len(errList) > 0 {
		return fmt.Errorf("shutdown errors: %v", errList)
	}

	s.logger.Info("graceful shutdown completed")
	return nil
}

// handleHealth returns health status
func (s *Server) handleHealth(c *gin.Context) {
	stats := s.store.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"accounts":  stats.AccountCount,
		"jobs":      stats.JobCount,
		"messages":  stats.MessageCount,
	})
}

// LoginRequest represents a submitted credential set
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Proxy    string `json:"proxy,omitempty"`
	Device   string `json:"device,omitempty"`
}

// LoginResponse carries the durable job ID back to the caller
type LoginResponse struct {
	JobID  int64  `json:"job_id"`
	Status string `json:"status"`
}

// handleSubmitLogin accepts credentials and schedules a login job. The
// 201 arrives while the browser session is still ahead of the job.
func (s *Server) handleSubmitLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.provisioner.Submit(c.Request.Context(), req.Email, req.Password, req.Proxy, req.Device)
	if err != nil {
		var valErr *apperrors.ErrValidation
		if goerrors.As(err, &valErr) {
			s.metrics.RecordError("validation_error", "/api/login", "POST")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logger.ErrorWithContext(c.Request.Context(), "login submission failed",
			"error", err.Error(),
		)
		s.metrics.RecordError("store_error", "/api/login", "POST")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.logger.InfoWithContext(c.Request.Context(), "login job accepted",
		"job_id", id,
		"email", req.Email,
	)

	c.JSON(http.StatusCreated, LoginResponse{
		JobID:  id,
		Status: string(models.StatusRunning),
	})
}

// handleGetJob returns the status tuple for one job
func (s *Server) handleGetJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job id must be an integer"})
		return
	}

	job, err := s.provisioner.Status(c.Request.Context(), id)
	if err != nil {
		var notFound *apperrors.ErrJobNotFound
		if goerrors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		s.metrics.RecordError("store_error", "/api/jobs/:id", "GET")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, job)
}

// handleListJobs returns all jobs, newest first
func (s *Server) handleListJobs(c *gin.Context) {
	jobs, err := s.store.ListJobs()
	if err != nil {
		s.metrics.RecordError("store_error", "/api/jobs", "GET")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if jobs == nil {
		jobs = []*models.LoginJob{}
	}
	c.JSON(http.StatusOK, jobs)
}

// handleListAccounts returns all accounts with their age recomputed
// from created_at.
func (s *Server) handleListAccounts(c *gin.Context) {
	accounts, err := s.store.ListAccounts()
	if err != nil {
		s.metrics.RecordError("store_error", "/api/accounts", "GET")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	resp := make([]*models.Account, 0, len(accounts))
	for _, acc := range accounts {
		acc.AgeDays = acc.Age(now)
		resp = append(resp, acc)
	}
	c.JSON(http.StatusOK, resp)
}

// handleListMessages returns the append-only message log
func (s *Server) handleListMessages(c *gin.Context) {
	messages, err := s.store.ListMessages()
	if err != nil {
		s.metrics.RecordError("store_error", "/api/messages", "GET")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

// AppendMessageRequest represents an incoming message for an account
type AppendMessageRequest struct {
	AccountID    int64  `json:"account_id" binding:"required"`
	ListingTitle string `json:"listing_title"`
	Text         string `json:"text" binding:"required"`
}

// handleAppendMessage appends a message to the log. Posted messages are
// always operator replies; incoming customer messages arrive elsewhere.
func (s *Server) handleAppendMessage(c *gin.Context) {
	var req AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.store.GetAccount(req.AccountID); err != nil {
		var notFound *apperrors.ErrAccountNotFound
		if goerrors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	msg := &models.Message{
		AccountID:    req.AccountID,
		ListingTitle: req.ListingTitle,
		Sender:       models.SenderOperator,
		Text:         req.Text,
		Timestamp:    time.Now().UTC(),
	}
	id, err := s.store.AppendMessage(msg)
	if err != nil {
		s.metrics.RecordError("store_error", "/api/messages", "POST")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	msg.ID = id

	c.JSON(http.StatusCreated, msg)
}
