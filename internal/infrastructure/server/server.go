package server

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/framehost/internal/api/http"
	"github.com/GriffinCanCode/framehost/internal/api/middleware"
	"github.com/GriffinCanCode/framehost/internal/api/ws"
	"github.com/GriffinCanCode/framehost/internal/domain/frames"
	"github.com/GriffinCanCode/framehost/internal/infrastructure/config"
	"github.com/GriffinCanCode/framehost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/framehost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framehost/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/framehost/internal/sandbox"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *nethttp.Server
	frames  *frames.Manager
	pool    *sandbox.Pool
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing frame host",
		zap.String("port", cfg.Server.Port),
		zap.String("frame_origin", cfg.Frame.Origin),
		zap.Bool("sandbox", cfg.Sandbox.Enabled),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("framehost", logger.Logger)

	var profiles map[string]config.Profile
	if cfg.Frame.ProfilesFile != "" {
		loaded, err := config.LoadProfiles(cfg.Frame.ProfilesFile)
		if err != nil {
			tracer.Close()
			return nil, fmt.Errorf("failed to load frame profiles: %w", err)
		}
		profiles = loaded
		logger.Info("Loaded frame profiles",
			zap.String("file", cfg.Frame.ProfilesFile),
			zap.Int("count", len(profiles)),
		)
	}

	manager := frames.NewManager(frames.Defaults{
		Origin:      cfg.Frame.Origin,
		Language:    cfg.Frame.Language,
		IndentWidth: cfg.Frame.IndentWidth,
		Writable:    cfg.Frame.Writable,
	}, profiles, frames.NewMemoryStore(), metrics, logger)

	var pool *sandbox.Pool
	if cfg.Sandbox.Enabled {
		sbConfig := sandbox.DefaultConfig()
		if cfg.Sandbox.Timeout > 0 {
			sbConfig.Timeout = cfg.Sandbox.Timeout
		}
		p, err := sandbox.NewPool(sbConfig, cfg.Sandbox.PoolSize)
		if err != nil {
			tracer.Close()
			return nil, fmt.Errorf("failed to create sandbox pool: %w", err)
		}
		pool = p
		logger.Info("Sandbox pool ready", zap.Int("size", cfg.Sandbox.PoolSize))
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.CORSConfigFor(cfg.Server.CORSOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := http.NewHandlers(manager, pool, metrics, logger.Logger)
	handlers.RegisterRoutes(router)

	wsHandler := ws.NewHandler(manager, metrics, logger.Logger, cfg.Frame.MaxMessageSize)
	router.GET("/frames/:id/connect", wsHandler.FrameConnect)
	router.GET("/frames/:id/events", wsHandler.HostEvents)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	s := &Server{
		router:  router,
		frames:  manager,
		pool:    pool,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}
	s.http = &nethttp.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

// Handler returns the root handler, gzip-wrapped when compression is on.
// WebSocket upgrades bypass compression.
func (s *Server) Handler() nethttp.Handler {
	if !s.config.Server.Compress {
		return s.router
	}
	gz := gzhttp.GzipHandler(s.router)
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			s.router.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// Frames exposes the session manager.
func (s *Server) Frames() *frames.Manager {
	return s.frames
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then closes every frame session and
// the sandbox pool.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
	}

	s.frames.Shutdown()
	if s.pool != nil {
		if perr := s.pool.Close(); perr != nil {
			s.logger.Error("Failed to close sandbox pool", zap.Error(perr))
		}
	}
	s.tracer.Close()

	// Sync logger before exit
	_ = s.logger.Sync()
	return err
}
