package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/toolgate/backend/internal/api/http"
	"github.com/toolgate/backend/internal/api/middleware"
	"github.com/toolgate/backend/internal/bridge"
	"github.com/toolgate/backend/internal/dispatch"
	"github.com/toolgate/backend/internal/infrastructure/config"
	"github.com/toolgate/backend/internal/infrastructure/logging"
	"github.com/toolgate/backend/internal/infrastructure/monitoring"
	"github.com/toolgate/backend/internal/providers/browser"
	"github.com/toolgate/backend/internal/providers/fileops"
	"github.com/toolgate/backend/internal/providers/shell"
	"github.com/toolgate/backend/internal/providers/system"
	"github.com/toolgate/backend/internal/providers/web"
	"github.com/toolgate/backend/internal/security"
	"github.com/toolgate/backend/internal/shared/types"
)

// DefaultBrowserAgent is the identity the browser toolset targets unless
// a call overrides it with an agent_id argument.
const DefaultBrowserAgent = "browser-agent"

// Server wires configuration, the security gate, the agent bridge, the
// tool registry, and the HTTP surface together.
type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	bridge  *bridge.Manager
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a fully wired server instance.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing toolgate server",
		zap.String("port", cfg.Server.Port),
		zap.Bool("bridge_enabled", cfg.Bridge.Enabled),
	)

	metrics := monitoring.NewMetrics()

	gate, err := buildGate(cfg, logger)
	if err != nil {
		return nil, err
	}

	var bridgeManager *bridge.Manager
	if cfg.Bridge.Enabled {
		bridgeManager = bridge.NewManager(bridge.Config{
			Host:              cfg.Server.Host,
			Port:              cfg.Bridge.Port,
			Token:             cfg.Bridge.Token,
			AuthTimeout:       cfg.Bridge.AuthTimeout,
			HeartbeatInterval: cfg.Bridge.HeartbeatInterval,
			LivenessTimeout:   cfg.Bridge.LivenessTimeout,
			InvokeTimeout:     cfg.Bridge.InvokeTimeout,
		}, logger, metrics)
	}

	registry := dispatch.NewRegistry()
	if err := registerTools(registry, cfg); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	logger.Info("Tool registry built", zap.Int("tools", registry.Count()))

	var remote dispatch.RemoteInvoker
	if bridgeManager != nil {
		remote = bridgeManager
	}
	dispatcher := dispatch.NewDispatcher(registry, gate, remote, cfg.Bridge.InvokeTimeout, logger).
		WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.ExtractCredential())
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(cfg.RateLimit))
	}

	handlers := apihttp.NewHandlers(dispatcher, gate, bridgeManager, logger)

	router.POST("/mcp", handlers.MCP)
	router.GET("/health", handlers.Health)
	router.GET("/tools", handlers.Tools)
	router.POST("/execute", handlers.Execute)
	router.GET("/bridge/sessions", handlers.BridgeSessions)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		bridge:  bridgeManager,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// buildGate assembles the security gate from the policy file or the
// environment, in that order of preference.
func buildGate(cfg *config.Config, logger *logging.Logger) (*security.Gate, error) {
	var policies map[string]security.KeyPolicy
	var err error

	switch {
	case cfg.Security.PolicyFile != "":
		policies, err = security.LoadPolicyFile(cfg.Security.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load policy file: %w", err)
		}
		logger.Info("API key policies loaded",
			zap.String("file", cfg.Security.PolicyFile),
			zap.Int("keys", len(policies)),
		)
	case cfg.Security.APIKeys != "":
		policies, err = security.ParsePolicies(cfg.Security.APIKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to parse API key policies: %w", err)
		}
		logger.Info("API key policies parsed from environment", zap.Int("keys", len(policies)))
	}

	gate := security.NewGate(policies, cfg.Security.DenyPatterns)
	if gate.DevMode() {
		logger.Warn("No API keys configured, running in development mode: all tools are open")
	}
	return gate, nil
}

// registerTools registers every built-in provider. Duplicate tool names
// are a startup failure, not a runtime surprise.
func registerTools(registry *dispatch.Registry, cfg *config.Config) error {
	shellProvider := shell.New(shell.Config{
		WorkDir:         cfg.Shell.WorkDir,
		MaxExecSeconds:  cfg.Shell.MaxExecSeconds,
		MaxInputLength:  cfg.Shell.MaxInputLength,
		MaxOutputLength: cfg.Shell.MaxOutputLength,
	})
	fileProvider := fileops.New(fileops.Config{
		MaxInputLength:  cfg.Shell.MaxInputLength,
		MaxOutputLength: cfg.Shell.MaxOutputLength,
	})
	webProvider := web.New(web.Config{
		RetryCount:      2,
		MaxOutputLength: cfg.Shell.MaxOutputLength,
	})

	sets := [][]types.ToolDescriptor{
		system.Descriptors(),
		shellProvider.Descriptors(),
		fileProvider.Descriptors(),
		webProvider.Descriptors(),
	}
	if cfg.Bridge.Enabled {
		sets = append(sets, browser.Descriptors(DefaultBrowserAgent, cfg.Bridge.InvokeTimeout))
	}

	for _, set := range sets {
		if err := registry.RegisterAll(set); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the bridge listener and the HTTP server, blocking until the
// HTTP server stops.
func (s *Server) Run() error {
	if s.bridge != nil {
		if err := s.bridge.Start(); err != nil {
			return fmt.Errorf("failed to start agent bridge: %w", err)
		}
	}

	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))

	s.httpSrv = &http.Server{Addr: addr, Handler: s.router}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close gracefully shuts down the HTTP server and the bridge.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var firstErr error
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if s.bridge != nil {
		if err := s.bridge.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.logger.Info("Server shutdown complete")
	_ = s.logger.Sync()
	return firstErr
}
