// Package logging provides structured logging using uber/zap.
//
// This package offers two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a named child logger so entries carry a "component"
// field. Bearer tokens are only ever logged through Token, which records a
// fingerprint instead of the value.
//
// Example Usage:
//
//	logger := logging.NewOrNop(logging.Config{Level: cfg.Logging.Level})
//	logger.Component("hostbridge").Info("Host token received", logging.Token("token", tok))
package logging
