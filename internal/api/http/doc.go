// Package http provides the gateway's REST endpoints on gin.
//
// Endpoints:
//   - Health: / and /health, /metrics/json
//   - Tools: GET /tools, POST /tools/:name/invoke
//   - Sessions: GET /sessions/:id, POST /sessions/:id/host-messages
//   - Client logs: POST /logs
//
// Tool invocations resolve the page by session id (or page id) and run the
// tool with the page as its scope. An invalid widget answers 422 with the
// render acknowledgement; a page that closed mid-call answers 410.
//
// Session routes require the session's own bearer token. Host envelopes
// relayed over HTTP carry the request's Origin header as their origin.
//
// Example Usage:
//
//	handlers := http.NewHandlers(tools, hub, metrics, agentClient, logger)
//	handlers.Register(router)
package http
