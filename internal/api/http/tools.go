package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/action"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/service"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/shared/utils"
)

// InvokeRequest is the body of a tool invocation
type InvokeRequest struct {
	SessionID string                 `json:"session_id" binding:"required"`
	Args      map[string]interface{} `json:"args"`
}

// ListTools lists providers and their tools, optionally by category
func (h *Handlers) ListTools(c *gin.Context) {
	var category *service.Category
	if raw := c.Query("category"); raw != "" {
		cat := service.Category(raw)
		category = &cat
	}

	c.JSON(http.StatusOK, gin.H{
		"providers": h.tools.List(category),
		"tools":     h.tools.Tools(),
		"stats":     h.tools.Stats(),
	})
}

// InvokeTool runs a tool against the page that owns the session.
// request_confirmation holds the request open until the user answers.
func (h *Handlers) InvokeTool(c *gin.Context) {
	name := c.Param("name")
	if err := utils.ValidateToolName(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, _, ok := h.tools.Lookup(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tool: " + name})
		return
	}

	var req InvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateID(req.SessionID, "session_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Args == nil {
		req.Args = map[string]interface{}{}
	}

	p, ok := h.hub.Resolve(req.SessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active page for session"})
		return
	}

	var timer *monitoring.Timer
	if h.metrics != nil {
		timer = monitoring.NewTimer(h.metrics, name)
	}

	result, err := h.tools.Execute(c.Request.Context(), name, req.Args, &service.Call{
		SessionID: req.SessionID,
		Scope:     p,
	})

	status := invokeStatus(result, err)
	timer.Stop(strings.ToLower(http.StatusText(status)))
	if h.metrics != nil && result != nil {
		if ack, ok := result.Data.(*action.Ack); ok {
			h.metrics.RecordAck(ack)
		}
	}

	if err != nil {
		h.logger.Warn("Tool invocation failed",
			zap.String("tool", name),
			zap.String("page_id", p.ID().String()),
			zap.Error(err),
		)
		if result == nil {
			result = service.ErrorResult(err.Error())
		}
	}
	c.JSON(status, result)
}

func invokeStatus(result *service.Result, err error) int {
	switch {
	case errors.Is(err, service.ErrToolNotFound):
		return http.StatusNotFound
	case errors.Is(err, action.ErrTimelineClosed), errors.Is(err, action.ErrNoTimeline):
		return http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case err != nil:
		return http.StatusInternalServerError
	}
	if result != nil && !result.Success {
		if ack, ok := result.Data.(*action.Ack); ok && ack.Status == action.StatusInvalid {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	}
	return http.StatusOK
}
