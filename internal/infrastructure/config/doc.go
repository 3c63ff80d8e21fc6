// Package config provides 12-factor configuration management for the widget gateway.
//
// Configuration is loaded from a .env file when present, then environment
// variables with sensible defaults, then an optional YAML file named by CONFIG_FILE.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, shutdown timeout)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - CORS: Origins allowed to call the HTTP API
//   - Host: Document origins the embedding host may post messages from
//   - Session: Default TTL, fallback user and expired token policy
//   - Agent: Agent runtime URL, timeouts and retries
//   - Widgets: Payload size and nesting limits
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s\n", cfg.Server.Address())
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT, LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - CORS_ALLOWED_ORIGINS, HOST_ALLOWED_ORIGINS
//   - SESSION_DEFAULT_TTL, SESSION_FALLBACK_USER, SESSION_REJECT_EXPIRED
//   - AGENT_URL, AGENT_TIMEOUT, AGENT_MAX_RETRIES, AGENT_RATE_LIMIT, AGENT_REQUEST_TIMEOUT
//   - WIDGET_MAX_BYTES, WIDGET_MAX_DEPTH, CONFIG_FILE
package config
