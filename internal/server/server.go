// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mbd888/churnsight/internal/billing"
	"github.com/mbd888/churnsight/internal/config"
	"github.com/mbd888/churnsight/internal/detect"
	"github.com/mbd888/churnsight/internal/events"
	"github.com/mbd888/churnsight/internal/health"
	"github.com/mbd888/churnsight/internal/logging"
	"github.com/mbd888/churnsight/internal/metrics"
	"github.com/mbd888/churnsight/internal/ratelimit"
	"github.com/mbd888/churnsight/internal/realtime"
	"github.com/mbd888/churnsight/internal/risk"
	"github.com/mbd888/churnsight/internal/security"
	"github.com/mbd888/churnsight/internal/signals"
	"github.com/mbd888/churnsight/internal/validation"
	"github.com/mbd888/churnsight/internal/webhooks"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg            *config.Config
	bus            *events.Bus
	detectService  *detect.Service
	signalService  *signals.Service
	riskEngine     *risk.Engine
	riskTimer      *risk.Timer
	dispatcher     *webhooks.Dispatcher
	webhookStore   webhooks.Store
	emitter        *webhooks.Emitter
	consumer       *signals.Consumer
	billingService *billing.Service
	realtimeHub    *realtime.Hub
	healthReg      *health.Registry
	rateLimiter    *ratelimit.Limiter
	db             *sql.DB // nil if using in-memory
	router         *gin.Engine
	httpSrv        *http.Server
	logger         *slog.Logger
	cancelRunCtx   context.CancelFunc // cancels background goroutines started in Run

	// Providers for customer context enrichment. Nil in the default build;
	// injected when a commerce backend integration is configured.
	contextProvider detect.ContextProvider
	historyProvider risk.OrderHistoryProvider

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithContextProvider wires a customer profile source into detection.
func WithContextProvider(p detect.ContextProvider) Option {
	return func(s *Server) {
		s.contextProvider = p
	}
}

// WithOrderHistoryProvider wires an order history source into risk scoring.
func WithOrderHistoryProvider(p risk.OrderHistoryProvider) Option {
	return func(s *Server) {
		s.historyProvider = p
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	// Apply options first (may set logger/providers)
	for _, opt := range opts {
		opt(s)
	}

	s.healthReg = health.NewRegistry()
	s.bus = events.NewBus(s.logger)

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	var (
		detectStore  detect.Store
		signalStore  signals.Store
		riskStore    risk.Store
		webhookStore webhooks.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Test connection
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		detectStore = detect.NewPostgresStore(db)
		signalStore = signals.NewPostgresStore(db)
		riskStore = risk.NewPostgresStore(db)
		webhookStore = webhooks.NewPostgresStore(db)
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		s.healthReg.Register("database", func(ctx context.Context) error {
			return db.PingContext(ctx)
		})
	} else {
		detectStore = detect.NewMemoryStore()
		signalStore = signals.NewMemoryStore()
		riskStore = risk.NewMemoryStore()
		webhookStore = webhooks.NewMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	// Core services
	s.detectService = detect.NewService(detectStore, s.contextProvider, s.bus, s.logger)
	s.signalService = signals.NewService(signalStore, s.logger)
	s.riskEngine = risk.NewEngine(riskStore, s.signalService, s.historyProvider, s.bus, cfg.SignalWindow(), s.logger)
	s.riskTimer = risk.NewTimer(s.riskEngine, s.signalService, cfg.RiskRecomputeInterval, s.logger)
	s.logger.Info("risk engine enabled",
		"signal_window_days", cfg.SignalWindowDays,
		"recompute_interval", cfg.RiskRecomputeInterval,
	)

	// Outbound webhooks
	s.webhookStore = webhookStore
	s.dispatcher = webhooks.NewDispatcher(webhookStore)
	s.emitter = webhooks.NewEmitter(s.dispatcher, s.logger)
	s.emitter.Attach(s.bus)
	s.logger.Info("webhooks enabled")

	// Detections feed the signal ledger
	s.consumer = signals.NewConsumer(s.signalService, s.logger)
	s.consumer.Attach(s.bus)

	// Stripe billing ingestion (optional)
	if cfg.StripeWebhookSecret != "" {
		s.billingService = billing.NewService(s.signalService, s.logger)
		s.logger.Info("stripe billing ingestion enabled")
	}

	// Create realtime hub for WebSocket streaming
	s.realtimeHub = realtime.NewHub(s.logger)
	s.realtimeHub.Attach(s.bus)
	s.logger.Info("realtime streaming enabled")

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	s.rateLimiter = ratelimit.New(ratelimit.DefaultConfig())
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/healthz", s.healthHandler)
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/readyz", s.readinessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// API info
	s.router.GET("/api", s.infoHandler)

	// V1 API group
	v1 := s.router.Group("/v1")
	// Validate id-carrying URL params on all v1 routes (no-op when params absent)
	v1.Use(validation.IDParamMiddleware())

	// Detection pipeline
	detect.NewHandler(s.detectService).RegisterRoutes(v1)

	// Churn signal ledger
	signals.NewHandler(s.signalService).RegisterRoutes(v1)

	// Risk scores
	risk.NewHandler(s.riskEngine).RegisterRoutes(v1)

	// Webhook subscription management
	webhooks.NewHandler(s.webhookStore, s.cfg.WebhookSecret).RegisterRoutes(v1)

	// Stripe billing ingestion (only when a signing secret is configured)
	if s.billingService != nil {
		billing.NewHandler(s.billingService, s.cfg.StripeWebhookSecret).RegisterRoutes(v1)
	}

	// WebSocket for real-time streaming
	v1.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})
	v1.GET("/ws/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.realtimeHub.Stats())
	})
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, statuses := s.healthReg.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    statuses,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Churnsight",
		"description": "Retention intelligence for subscription commerce",
		"version":     "0.1.0",
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start event bus dispatch loop
	go s.bus.Run(runCtx)

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Start scheduled risk recomputation
	go s.riskTimer.Start(runCtx)

	// Start DB stats collection
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (bus, hub, timer)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop risk recompute timer
	if s.riskTimer != nil {
		s.riskTimer.Stop()
		s.logger.Info("risk timer stopped")
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
