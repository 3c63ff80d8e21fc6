// Package agent is the HTTP client for the agent runtime.
//
// Requests carry the page's bearer token as Authorization: Bearer <token>.
// The transport retries idempotent failures and a circuit breaker stops
// calling a runtime that keeps failing.
package agent
