// Package ws runs a chat page over a WebSocket.
//
// One connection is one page. The upgrade request carries the mobile bearer
// token and optional JSON metadata in the query string; the page bootstraps
// its session from them right after the welcome frame.
//
// Message Types (Client → Server):
//   - host_message: a host envelope {origin, data} for the page's bus
//   - widget_action: a click {view_id, action_id, values, attachments}
//   - stop: cancel the in-flight agent request
//   - ping: keep-alive
//
// Message Types (Server → Client):
//   - system: connection established, carries page_id
//   - session: session state changed
//   - widget / notice: timeline entries
//   - host_message: a message for the host, e.g. TOKEN_RECEIVED
//   - deeplink: the shell should open a URL
//   - confirmation_resolved: a dialog was answered
//   - pong / error
//
// Example Usage:
//
//	handler := ws.NewHandler(hub, buildPage, checkOrigin, metrics, logger)
//	router.GET("/stream", handler.HandleConnection)
package ws
