package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/hostbridge"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/page"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/render"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/shared/id"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/shared/utils"
)

const (
	writeWait = 10 * time.Second
	// maxFrameSize fits a ticket form submit with attachments
	maxFrameSize = 8 * utils.MaxJSONSize
)

// PageBuilder creates the page for one connection
type PageBuilder func(sink page.Sink, metadata map[string]any) *page.Page

// Handler upgrades /stream requests and runs one page per connection
type Handler struct {
	hub      *page.Hub
	build    PageBuilder
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler. checkOrigin nil allows every origin.
func NewHandler(hub *page.Hub, build PageBuilder, checkOrigin func(*http.Request) bool, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		hub:     hub,
		build:   build,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// HandleConnection handles the upgrade and the page's read loop.
// Query parameters: token (the mobile bearer token) and metadata (a JSON object).
func (h *Handler) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	metadata := parseMetadata(c.Query("metadata"), h.logger)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	sink := &connSink{conn: conn, metrics: h.metrics}
	p := h.build(sink, metadata)
	h.hub.Register(p)
	if h.metrics != nil {
		h.metrics.IncWSConnections()
		h.metrics.SetPagesActive(h.hub.Len())
		p.ObserveSession(h.metrics.SessionObserver())
	}
	defer func() {
		p.Close()
		if h.metrics != nil {
			h.metrics.DecWSConnections()
			h.metrics.SetPagesActive(h.hub.Len())
		}
	}()

	logger := h.logger.With(zap.String("page_id", p.ID().String()))
	logger.Info("Page connected")

	sink.Send(map[string]interface{}{
		"type":      TypeSystem,
		"message":   "Connected to EcoAssist",
		"page_id":   p.ID(),
		"timestamp": time.Now().Unix(),
	})
	p.Start(token)

	for {
		var msg Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket read error", zap.Error(err))
			}
			break
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("inbound", msg.Type)
		}
		h.handle(p, sink, msg, logger)
	}
	logger.Info("Page disconnected")
}

func (h *Handler) handle(p *page.Page, sink *connSink, msg Inbound, logger *zap.Logger) {
	switch msg.Type {
	case TypeHostMessage:
		if err := p.HandleHostMessage(hostbridge.Envelope{Origin: msg.Origin, Data: msg.Data}); err != nil {
			logger.Debug("Host message not delivered", zap.Error(err))
		}
	case TypeWidgetAction:
		input := render.Input{Values: msg.Values, Attachments: msg.Attachments}
		if err := p.Trigger(id.ViewID(msg.ViewID), msg.ActionID, input); err != nil {
			sendError(sink, err.Error())
		}
	case TypeStop:
		p.Stop()
	case TypePing:
		sink.Send(map[string]interface{}{"type": TypePong, "timestamp": time.Now().Unix()})
	default:
		sendError(sink, "unknown message type")
	}
}

func parseMetadata(raw string, logger *zap.Logger) map[string]any {
	if raw == "" {
		return nil
	}
	var metadata map[string]any
	if err := sonic.ConfigStd.UnmarshalFromString(raw, &metadata); err != nil {
		logger.Warn("Ignoring malformed metadata", zap.Error(err))
		return nil
	}
	return metadata
}

// connSink serialises writes to one connection. gorilla allows a single writer.
type connSink struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	metrics *monitoring.Metrics
}

func (s *connSink) Send(frame map[string]interface{}) error {
	if _, ok := frame["timestamp"]; !ok {
		frame["timestamp"] = time.Now().Unix()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := s.conn.WriteJSON(frame); err != nil {
		return err
	}
	if s.metrics != nil {
		if t, ok := frame["type"].(string); ok {
			s.metrics.RecordWSMessage("outbound", t)
		}
	}
	return nil
}

func sendError(sink *connSink, message string) {
	_ = sink.Send(map[string]interface{}{
		"type":    TypeError,
		"message": message,
	})
}
