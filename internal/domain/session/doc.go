// Package session derives the page session from the bearer token the host
// delivers.
//
// Bootstrap is pure: it decodes the token claims without verifying the
// signature and maps them to a Session. Machine wraps it in the
// idle → loading → ready | error lifecycle, running at most once per token.
package session
