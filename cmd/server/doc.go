// Package main is the entry point for the EcoAssist widget gateway.
//
// The gateway sits between the chat page embedded in the EcoCash host and
// the agent runtime:
//
//	Host shell --postMessage--> Chat page --/stream--> Gateway --HTTP--> Agent runtime
//	                                                      ^                   |
//	                                                      +--/tools/*/invoke--+
//
// Configuration:
//   - .env file, then environment variables
//   - CONFIG_FILE YAML overlay
//   - CLI flags override both
//
// Usage:
//
//	./server -port 8000 -agent http://localhost:9000
//
//	# Development mode (console logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
