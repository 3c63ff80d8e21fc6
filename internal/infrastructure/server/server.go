package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/agent"
	apihttp "github.com/GriffinCanCode/EcoAssist/backend/internal/api/http"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/api/middleware"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/api/ws"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/action"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/hostbridge"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/page"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/render"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/session"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/widget"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/service"
)

// Server wraps the HTTP server and its dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	hub     *page.Hub
	tools   *service.Registry
	agent   *agent.Client
	tracer  *tracing.Tracer
	metrics *monitoring.Metrics
	logger  *logging.Logger
	config  *config.Config
}

// NewServer builds every component from cfg and mounts the routes
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing EcoAssist gateway",
		zap.String("addr", cfg.Server.Address()),
		zap.Strings("host_origins", cfg.Host.AllowedOrigins),
		zap.Bool("agent_configured", cfg.Agent.BaseURL != ""),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("widget-gateway", logger.Component("tracing"))

	widgets, err := widget.NewRegistry(widget.Limits{
		MaxBytes: cfg.Widgets.MaxBytes,
		MaxDepth: cfg.Widgets.MaxDepth,
	})
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to compile widget schemas: %w", err)
	}

	renderer := render.New(logger.Component("render")).WithTracker(metrics.Tracker())
	bridge := action.NewBridge(widgets, renderer, logger.Component("action"))

	tools := service.NewRegistry()
	if err := tools.Register(action.NewToolProvider(bridge)); err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to register widget tools: %w", err)
	}

	agentCfg := agent.DefaultConfig()
	agentCfg.BaseURL = cfg.Agent.BaseURL
	agentCfg.Timeout = cfg.Agent.Timeout
	agentCfg.MaxRetries = cfg.Agent.MaxRetries
	agentCfg.RateLimit = cfg.Agent.RateLimit
	agentClient := agent.NewClient(agentCfg, logger.Component("agent"))

	var runtime page.Agent
	if agentClient.Configured() {
		runtime = metrics.InstrumentAgent(agentClient)
	} else {
		logger.Warn("AGENT_URL not set, user turns will not reach the agent runtime")
	}

	hub := page.NewHub()
	origins := hostbridge.NewOriginPolicy(cfg.Host.AllowedOrigins)
	policy := session.Policy{
		DefaultTTL:     cfg.Session.DefaultTTL,
		FallbackUserID: cfg.Session.FallbackUserID,
		RejectExpired:  cfg.Session.RejectExpired,
	}
	pageLogger := logger.Component("page")

	build := func(sink page.Sink, metadata map[string]any) *page.Page {
		return page.New(page.Options{
			Origins:  origins,
			Session:  policy,
			Renderer: renderer,
			Agent:    runtime,
			Sink:     sink,
			HostBreaker: resilience.New("host-channel", resilience.Settings{
				Cooldown: 10 * time.Second,
				Trip:     resilience.ConsecutiveFailures(3),
			}),
			Recorder:      metrics.HostRecorder(),
			Logger:        pageLogger,
			Metadata:      metadata,
			AgentTimeout:  cfg.Agent.RequestTimeout,
			Tracer:        tracer,
			Confirmations: metrics.ConfirmationObserver(),
		})
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger.Component("http")))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.RequestLogger(logger.Component("http")))
	router.Use(middleware.CORS(middleware.CORSConfigFor(cfg.CORS.AllowedOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limits.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limits))
	}

	handlers := apihttp.NewHandlers(tools, hub, metrics, agentClient, logger.Component("api"))
	handlers.Register(router)

	wsHandler := ws.NewHandler(hub, build, allowOrigins(cfg.CORS.AllowedOrigins), metrics, logger.Component("ws"))
	router.GET("/stream", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	logger.Info("Gateway initialized", zap.Int("tools", len(tools.Tools())))

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Server.Address(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		hub:     hub,
		tools:   tools,
		agent:   agentClient,
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
		config:  cfg,
	}, nil
}

// Handler returns the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains connections
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP shutdown incomplete", zap.Error(err))
		return err
	}
	return nil
}

// Close tears down live pages and flushes telemetry
func (s *Server) Close() error {
	s.logger.Info("Shutting down gateway...", zap.Int("pages", s.hub.Len()))

	s.hub.Close()
	s.metrics.SetPagesActive(0)
	s.tracer.Close()

	_ = s.logger.Sync()
	return nil
}

// allowOrigins builds the websocket origin check from the CORS list.
// Requests without an Origin header come from non-browser clients.
func allowOrigins(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return nil
		}
		allowed[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		_, ok := allowed[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
