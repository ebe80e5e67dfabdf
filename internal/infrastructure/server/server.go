package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/DocSandbox/backend/internal/api/http"
	"github.com/GriffinCanCode/DocSandbox/backend/internal/api/middleware"
	"github.com/GriffinCanCode/DocSandbox/backend/internal/api/ws"
	"github.com/GriffinCanCode/DocSandbox/backend/internal/domain/documents"
	"github.com/GriffinCanCode/DocSandbox/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/DocSandbox/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/DocSandbox/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/DocSandbox/backend/internal/infrastructure/tracing"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	docs       *documents.Service
	hub        *ws.Hub
	tracer     *tracing.Tracer
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer creates a new server instance. It fails when the document root
// cannot be opened.
func NewServer(cfg *config.Config) (*Server, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	logCfg.Development = cfg.Logging.Development
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing DocSandbox server",
		zap.String("port", cfg.Server.Port),
		zap.String("root", cfg.Documents.Root),
	)

	// Initialize metrics first (needed by other components)
	var metrics *monitoring.Metrics
	if cfg.Metrics.Enabled {
		metrics = monitoring.NewMetrics()
		logger.Info("Performance monitoring initialized")
	}

	tracer := tracing.New("docsandbox", logger.Component("tracing"))

	hub := ws.NewHub(cfg.Server.EventBuffer, logger.Component("events")).WithMetrics(metrics)

	docs, err := documents.New(documents.Config{
		BasePath:      cfg.Documents.Root,
		Tag:           cfg.Documents.Tag,
		Title:         cfg.Documents.Title,
		Summary:       cfg.Documents.Summary,
		SearchLimit:   cfg.Documents.SearchLimit,
		RecentLimit:   cfg.Documents.RecentLimit,
		ValidateNames: cfg.Documents.ValidateNames,
		Exclude:       cfg.Documents.Exclude,
		UsageSummary:  cfg.Documents.UsageSummary,
	},
		documents.WithLogger(logger.Component("documents")),
		documents.WithCloseListener(hub.Publish),
	)
	if err != nil {
		tracer.Close()
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open document root: %w", err)
	}
	docs.WithMetrics(metrics)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger.Component("http")))
	router.Use(tracing.HTTPMiddleware(tracer))
	if metrics != nil {
		router.Use(monitoring.Middleware(metrics))
	}
	router.Use(middleware.AccessLog(logger.Component("http")))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.String("scope", cfg.RateLimit.Scope),
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(rateLimiter(cfg.RateLimit))
	}

	handlers := apihttp.NewHandlers(docs, hub, metrics, logger.Component("api")).
		WithUploadLimit(cfg.Server.MaxUploadBytes).
		WithLogLevel(logger)
	wsHandler := ws.NewHandler(hub, logger.Component("events"))
	registerRoutes(router, handlers, wsHandler, metrics, cfg.Server.MaxUploadBytes)

	logger.Info("Server initialized successfully", zap.String("root_id", docs.RootID()))

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		docs:    docs,
		hub:     hub,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

func registerRoutes(router *gin.Engine, h *apihttp.Handlers, events *ws.Handler, metrics *monitoring.Metrics, maxUpload int64) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/roots", h.Roots)

	docs := router.Group("/documents")
	{
		docs.GET("", h.QueryDocument)
		docs.POST("", h.Create)
		docs.DELETE("", h.Delete)
		docs.GET("/type", h.DocumentType)
		docs.GET("/children", h.Children)
		docs.GET("/search", h.Search)
		docs.GET("/recent", h.Recent)
		docs.GET("/content", h.Download)
		docs.PUT("/content", middleware.BodyLimit(maxUpload), h.Upload)
		docs.GET("/thumbnail", h.Thumbnail)
	}

	router.GET("/events", events.HandleConnection)

	admin := router.Group("/admin")
	{
		admin.GET("/log-level", h.LogLevel)
		admin.PUT("/log-level", h.SetLogLevel)
	}

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
		router.GET("/metrics/json", h.MetricsJSON)
	}
}

// rateLimiter picks per-client or global limiting.
func rateLimiter(cfg config.RateLimitConfig) gin.HandlerFunc {
	limits := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		IdleTTL:           middleware.DefaultRateLimitConfig().IdleTTL,
	}
	if cfg.Scope == config.RateLimitGlobal {
		return middleware.GlobalRateLimit(limits)
	}
	return middleware.RateLimit(limits)
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Documents returns the document service.
func (s *Server) Documents() *documents.Service {
	return s.docs
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run starts the HTTP server and blocks until it stops. A stop caused by
// Shutdown returns nil.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones up to the
// configured timeout, then disconnects event subscribers and flushes logs.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down server")
	s.hub.Close()
	err := s.httpServer.Shutdown(ctx)
	s.tracer.Close()
	if err != nil {
		s.logger.Error("Graceful shutdown incomplete", zap.Error(err))
	} else {
		s.logger.Info("Server stopped")
	}
	_ = s.logger.Sync()
	return err
}
