package ws

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/hostbridge"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/page"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/session"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/testutil"
)

const hostOrigin = "https://app.ecocash.example"

type fixture struct {
	hub    *page.Hub
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := page.NewHub()
	build := func(sink page.Sink, metadata map[string]any) *page.Page {
		return page.New(page.Options{
			Origins:  hostbridge.NewOriginPolicy([]string{hostOrigin}),
			Session:  session.DefaultPolicy(),
			Sink:     sink,
			Metadata: metadata,
		})
	}

	router := gin.New()
	router.GET("/stream", NewHandler(hub, build, nil, monitoring.NewMetrics(), nil).HandleConnection)
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		hub.Close()
	})
	return &fixture{hub: hub, server: server}
}

func (f *fixture) dial(t *testing.T, query url.Values) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/stream"
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until match accepts one
func readUntil(t *testing.T, conn *websocket.Conn, match func(map[string]interface{}) bool) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var frame map[string]interface{}
		require.NoError(t, conn.ReadJSON(&frame))
		if match(frame) {
			return frame
		}
	}
}

func ofType(kind string) func(map[string]interface{}) bool {
	return func(f map[string]interface{}) bool { return f["type"] == kind }
}

func sessionStatus(status session.Status) func(map[string]interface{}) bool {
	return func(f map[string]interface{}) bool {
		if f["type"] != page.FrameSession {
			return false
		}
		s, _ := f["session"].(map[string]interface{})
		return s["status"] == string(status)
	}
}

func TestConnectBootstrapsSession(t *testing.T) {
	f := newFixture(t)
	token := testutil.MakeUserToken(t, "user-42", time.Now().Add(time.Hour))
	conn := f.dial(t, url.Values{"token": {token}})

	system := readUntil(t, conn, ofType(TypeSystem))
	assert.NotEmpty(t, system["page_id"])

	ready := readUntil(t, conn, sessionStatus(session.StatusReady))
	s := ready["session"].(map[string]interface{})
	assert.Equal(t, "user-42", s["userId"])

	testutil.Eventually(t, func() bool { return f.hub.Len() == 1 })
	_, ok := f.hub.BySession(s["sessionId"].(string))
	assert.True(t, ok)
}

func TestMissingTokenThenSetToken(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, nil)

	failed := readUntil(t, conn, sessionStatus(session.StatusError))
	assert.Equal(t, session.MessageMissingToken, failed["session"].(map[string]interface{})["error"])

	token := testutil.MakeUserToken(t, "user-7", time.Now().Add(time.Hour))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":   TypeHostMessage,
		"origin": hostOrigin,
		"data":   map[string]interface{}{"type": "SET_TOKEN", "token": token},
	}))

	ack := readUntil(t, conn, ofType(page.FrameHostMessage))
	assert.Equal(t, map[string]interface{}{"type": "TOKEN_RECEIVED", "success": true}, ack["data"])
	readUntil(t, conn, sessionStatus(session.StatusReady))
}

func TestForeignOriginIgnored(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, nil)
	readUntil(t, conn, sessionStatus(session.StatusError))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":   TypeHostMessage,
		"origin": "https://evil.example",
		"data":   map[string]interface{}{"type": "SET_TOKEN", "token": "abc.def.ghi"},
	}))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": TypePing}))

	// the pong arrives without any host acknowledgement before it
	frame := readUntil(t, conn, func(f map[string]interface{}) bool {
		return f["type"] == TypePong || f["type"] == page.FrameHostMessage
	})
	assert.Equal(t, TypePong, frame["type"])
}

func TestPingPong(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, nil)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": TypePing}))
	pong := readUntil(t, conn, ofType(TypePong))
	assert.NotNil(t, pong["timestamp"])
}

func TestUnknownFrameType(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, nil)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "teleport"}))
	frame := readUntil(t, conn, ofType(TypeError))
	assert.Equal(t, "unknown message type", frame["message"])
}

func TestWidgetActionUnknownView(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, nil)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":      TypeWidgetAction,
		"view_id":   "view_missing",
		"action_id": "confirm",
	}))
	frame := readUntil(t, conn, ofType(TypeError))
	assert.Contains(t, frame["message"], "unknown view")
}

func TestDisconnectRemovesPage(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, nil)
	readUntil(t, conn, ofType(TypeSystem))
	testutil.Eventually(t, func() bool { return f.hub.Len() == 1 })

	require.NoError(t, conn.Close())
	testutil.Eventually(t, func() bool { return f.hub.Len() == 0 })
}

func TestMetadataCarriesUserID(t *testing.T) {
	f := newFixture(t)
	token := testutil.MakeToken(t, map[string]interface{}{"exp": time.Now().Add(time.Hour).Unix()})
	conn := f.dial(t, url.Values{"token": {token}, "metadata": {`{"userId":"meta-user"}`}})

	ready := readUntil(t, conn, sessionStatus(session.StatusReady))
	assert.Equal(t, "meta-user", ready["session"].(map[string]interface{})["userId"])
}

func TestParseMetadata(t *testing.T) {
	logger := zap.NewNop()

	assert.Nil(t, parseMetadata("", logger))
	assert.Nil(t, parseMetadata("{not json", logger))
	assert.Equal(t, map[string]any{"userId": "u1"}, parseMetadata(`{"userId":"u1"}`, logger))
}
