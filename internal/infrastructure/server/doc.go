// Package server wires the gateway together.
//
// NewServer builds, in order:
//  1. Logger, metrics and tracer
//  2. Widget registry and renderer
//  3. Action bridge and the tool registry exposing render_widget and request_confirmation
//  4. Agent runtime client (optional, AGENT_URL)
//  5. Page hub and the per-connection page builder
//  6. Gin router with recovery, tracing, metrics, request logging, CORS and rate limiting
//
// Routes:
//
//	GET  /                              liveness
//	GET  /health                        registry, pages and agent breaker
//	GET  /metrics                       Prometheus exposition
//	GET  /metrics/json                  dashboard summary
//	GET  /tools                         tool catalog
//	POST /tools/:name/invoke            agent tool call against a session
//	GET  /sessions/:id                  page state
//	POST /sessions/:id/host-messages    host envelope relay
//	POST /logs                          chat page log relay
//	GET  /stream                        chat page websocket
//
// Example:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer srv.Close()
//	err = srv.Run(ctx)
package server
