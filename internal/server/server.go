package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsguard/internal/api/middleware"
	"github.com/GriffinCanCode/fsguard/internal/confirm"
	httpapi "github.com/GriffinCanCode/fsguard/internal/http"
	"github.com/GriffinCanCode/fsguard/internal/infrastructure/config"
	"github.com/GriffinCanCode/fsguard/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsguard/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/fsguard/internal/providers/filesystem"
	"github.com/GriffinCanCode/fsguard/internal/providers/media"
	"github.com/GriffinCanCode/fsguard/internal/security"
	"github.com/GriffinCanCode/fsguard/internal/service"
	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
	mcptransport "github.com/GriffinCanCode/fsguard/internal/transport/mcp"
	"github.com/GriffinCanCode/fsguard/internal/ws"
)

const shutdownTimeout = 10 * time.Second

// Server wires the tool registry to its transports.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	version  string
	metrics  *monitoring.Metrics
	policy   *security.Policy
	registry *service.Registry
	hub      *confirm.Hub
	confirm  *confirm.Switch
	mode     string
	router   *gin.Engine
	mcp      *mcptransport.Server
}

// New builds every component from cfg. The confirmation channel is chosen from the
// configured mode; "auto" selects elicitation for stdio and the websocket hub for HTTP.
func New(cfg *config.Config, logger *zap.Logger, version string) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, fmt.Errorf("security policy: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		version: version,
		metrics: monitoring.NewMetrics(),
		policy:  policy,
		hub:     confirm.NewHub(),
		confirm: &confirm.Switch{},
		mode:    resolveMode(cfg.Confirm.Mode, cfg.Server.Transport),
	}
	if s.mode == config.ConfirmElicitation && cfg.Server.Transport != config.TransportStdio {
		return nil, fmt.Errorf("confirmation mode %q requires the stdio transport", s.mode)
	}

	auth := security.NewAuthorizer(policy,
		security.WithLogger(logger.Named("authorizer")),
		security.WithDenialObserver(func(kind fserrors.Kind) {
			s.metrics.RecordDenial(kind.String())
		}),
	)
	guard := confirm.NewGuard(policy, s.confirm,
		confirm.WithTimeout(cfg.Confirm.Timeout.Std()),
		confirm.WithLogger(logger.Named("confirm")),
		confirm.WithObserver(s.metrics.RecordConfirmation),
	)

	fsops := filesystem.NewOps(auth, guard, logger.Named("filesystem"))
	fsops.OnBatch = s.metrics.RecordBatch

	breaker := media.NewBreaker(logger.Named("exiftool"), func(_, to resilience.State) {
		s.metrics.SetBreakerState("exiftool", int(to))
	})
	engine := media.NewExifTool(cfg.Media.ExifToolPath,
		media.WithExifToolTimeout(cfg.Media.Timeout.Std()),
		media.WithBreaker(breaker),
		media.WithEngineLogger(logger.Named("exiftool")),
	)
	mediaOps := media.NewOps(fsops, engine, logger.Named("media"))

	s.registry = service.NewRegistry(
		service.WithLogger(logger.Named("registry")),
		service.WithMetrics(s.metrics),
	)
	if err := s.registry.Register(filesystem.NewProvider(fsops)); err != nil {
		return nil, err
	}
	if err := s.registry.Register(media.NewProvider(mediaOps)); err != nil {
		return nil, err
	}

	switch cfg.Server.Transport {
	case config.TransportHTTP:
		s.router = s.newRouter()
	default:
		s.mcp = mcptransport.NewServer(s.registry, version, logger.Named("mcp"))
	}
	s.confirm.Set(s.provider())

	logger.Info("Server initialized",
		zap.String("transport", cfg.Server.Transport),
		zap.String("confirm_mode", s.mode),
		zap.Strings("allowed_directories", policy.AllowedDirectories()),
		zap.Int("tools", len(s.registry.Tools())),
	)
	return s, nil
}

func resolveMode(mode, transport string) string {
	if mode != config.ConfirmAuto {
		return mode
	}
	if transport == config.TransportHTTP {
		return config.ConfirmWebSocket
	}
	return config.ConfirmElicitation
}

func (s *Server) provider() confirm.Provider {
	switch s.mode {
	case config.ConfirmTTY:
		if !confirm.TerminalAvailable() {
			s.logger.Warn("No controlling terminal; confirmations will be declined")
		}
		return confirm.NewTTY()
	case config.ConfirmWebSocket:
		return s.hub
	case config.ConfirmElicitation:
		return mcptransport.NewElicitor(s.mcp)
	default:
		return confirm.FailClosed{}
	}
}

func (s *Server) newRouter() *gin.Engine {
	if !s.cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(s.logger.Named("http")))
	router.Use(monitoring.Middleware(s.metrics))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = s.cfg.Server.AllowedOrigins
	router.Use(middleware.CORS(corsCfg))

	if s.cfg.RateLimit.Enabled {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = s.cfg.RateLimit.RequestsPerSecond
		rl.Burst = s.cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := httpapi.NewHandlers(s.registry, s.policy, s.metrics, s.hub, s.version)
	wsHandler := ws.NewHandler(s.hub, s.metrics, s.logger.Named("ws"), s.cfg.Server.AllowedOrigins)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Tools
	router.GET("/tools", handlers.ListTools)
	router.GET("/tools/:name", handlers.GetTool)
	router.POST("/tools/:name", handlers.ExecuteTool)

	// Confirmations
	router.GET("/ws/confirm", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	return router
}

// Registry returns the tool registry.
func (s *Server) Registry() *service.Registry {
	return s.registry
}

// Router returns the HTTP router, or nil for the stdio transport.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves the configured transport until ctx is cancelled.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if s.router != nil {
		return s.serveHTTP(ctx)
	}
	err := s.mcp.Serve(ctx, stdin, stdout)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) serveHTTP(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
