package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/page"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/service"
)

// AgentStatus reports on the agent runtime client
type AgentStatus interface {
	Configured() bool
	BreakerState() resilience.State
}

// Handlers contains the gateway's HTTP handlers
type Handlers struct {
	tools   *service.Registry
	hub     *page.Hub
	metrics *monitoring.Metrics
	agent   AgentStatus
	logger  *zap.Logger
	started time.Time
}

// NewHandlers creates a handler set. metrics and agent may be nil.
func NewHandlers(tools *service.Registry, hub *page.Hub, metrics *monitoring.Metrics, agent AgentStatus, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		tools:   tools,
		hub:     hub,
		metrics: metrics,
		agent:   agent,
		logger:  logger,
		started: time.Now(),
	}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/metrics/json", h.MetricsJSON)

	r.GET("/tools", h.ListTools)
	r.POST("/tools/:name/invoke", h.InvokeTool)

	r.GET("/sessions/:id", h.GetSession)
	r.POST("/sessions/:id/host-messages", h.PostHostMessage)

	r.POST("/logs", h.StreamLogs)
}

// Root handles the liveness probe
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "EcoAssist widget gateway",
		"version": "0.1.0",
	})
}

// Health reports on the registry, live pages and the agent runtime
func (h *Handlers) Health(c *gin.Context) {
	agent := gin.H{"configured": false}
	if h.agent != nil {
		agent = gin.H{
			"configured": h.agent.Configured(),
			"breaker":    h.agent.BreakerState().String(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"uptime_seconds": time.Since(h.started).Seconds(),
		"tool_registry":  h.tools.Stats(),
		"pages":          h.hub.Len(),
		"agent_runtime":  agent,
	})
}

// MetricsJSON returns the counters behind the dashboard
func (h *Handlers) MetricsJSON(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"timestamp":      time.Now().Unix(),
		"uptime_seconds": h.metrics.UptimeDuration().Seconds(),
		"summary":        h.metrics.Snapshot(),
	})
}
