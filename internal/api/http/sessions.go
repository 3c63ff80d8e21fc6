package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/hostbridge"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/page"
)

// HostMessageRequest relays a host envelope over HTTP. The origin comes from
// the request's Origin header, never from the body.
type HostMessageRequest struct {
	Data interface{} `json:"data" binding:"required"`
}

// sessionPage resolves the page for the :id param and requires the page's
// current bearer token. It writes the error response itself.
func (h *Handlers) sessionPage(c *gin.Context) (*page.Page, bool) {
	p, ok := h.hub.Resolve(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	if !p.Authorized(bearerToken(c)) {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing bearer token"})
		return nil, false
	}
	return p, true
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// GetSession returns the state of the page owning a session or page id
func (h *Handlers) GetSession(c *gin.Context) {
	p, ok := h.sessionPage(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page_id":               p.ID(),
		"session":               p.Session(),
		"context":               p.HostContext(),
		"views":                 p.Views(),
		"pending_confirmations": p.PendingConfirmations(),
	})
}

// PostHostMessage delivers an envelope to the page's bus. The caller must hold
// the page's token and the Origin header goes through the page's allow-list;
// rejected envelopes are dropped by the bridge exactly as on the socket.
func (h *Handlers) PostHostMessage(c *gin.Context) {
	p, ok := h.sessionPage(c)
	if !ok {
		return
	}

	var req HostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := p.HandleHostMessage(hostbridge.Envelope{Origin: c.GetHeader("Origin"), Data: req.Data})
	if errors.Is(err, hostbridge.ErrBusClosed) {
		c.JSON(http.StatusGone, gin.H{"error": "page closed"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"delivered": true})
}
