package session

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Status of a session
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// ErrorKind distinguishes failed bootstraps
type ErrorKind string

const (
	ErrorMissingToken ErrorKind = "missing_token"
	ErrorTokenDecode  ErrorKind = "token_decode"
	ErrorTokenExpired ErrorKind = "token_expired"
)

// MessageMissingToken is shown when the host never delivered a token
const MessageMissingToken = "Missing mobile token"

// Session is the bootstrap state exposed to the page
type Session struct {
	Status      Status    `json:"status"`
	SessionID   string    `json:"sessionId,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
	Error       string    `json:"error,omitempty"`
	ErrorKind   ErrorKind `json:"errorKind,omitempty"`
}

// Ready reports whether the session can be used
func (s Session) Ready() bool {
	return s.Status == StatusReady
}

// Policy controls how claims become a session
type Policy struct {
	DefaultTTL     time.Duration
	FallbackUserID string
	// RejectExpired turns an exp claim in the past into an error state
	RejectExpired bool
	Now           func() time.Time
}

// DefaultPolicy returns the bootstrap defaults
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL:     30 * time.Minute,
		FallbackUserID: "eco-user",
		Now:            time.Now,
	}
}

func (p Policy) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// Bootstrap derives a session from a bearer token. The signature is not
// verified: claims are display hints, authorization happens upstream.
// Bootstrap never panics; every failure is an error state.
func Bootstrap(token string, metadata map[string]any, policy Policy) (s Session) {
	defer func() {
		if r := recover(); r != nil {
			s = failed(ErrorTokenDecode, fmt.Sprintf("Failed to parse mobile token: %v", r))
		}
	}()

	if token == "" {
		return failed(ErrorMissingToken, MessageMissingToken)
	}

	claims, err := decodeClaims(token)
	if err != nil {
		return failed(ErrorTokenDecode, fmt.Sprintf("Failed to parse mobile token: %v", err))
	}

	now := policy.now()
	expiresAt := now.Add(policy.ttl())
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
		if policy.RejectExpired && !expiresAt.After(now) {
			return failed(ErrorTokenExpired, "Mobile token has expired")
		}
	}

	return Session{
		Status:      StatusReady,
		SessionID:   uuid.NewString(),
		UserID:      userID(claims, metadata, policy),
		DisplayName: displayName(claims),
		ExpiresAt:   expiresAt.UTC(),
	}
}

var errNoPayload = errors.New("token has no payload segment")

// base64URLToStd maps the URL alphabet onto the standard one so both decode
var base64URLToStd = strings.NewReplacer("-", "+", "_", "/")

// decodeClaims reads only the payload segment. The header and signature are
// never looked at, so an unknown alg or a junk header does not matter.
func decodeClaims(token string) (jwt.MapClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil, errNoPayload
	}

	segment := base64URLToStd.Replace(strings.TrimRight(parts[1], "="))
	if pad := len(segment) % 4; pad != 0 {
		segment += strings.Repeat("=", 4-pad)
	}
	payload, err := base64.StdEncoding.DecodeString(segment)
	if err != nil {
		return nil, fmt.Errorf("payload is not base64: %w", err)
	}

	claims := jwt.MapClaims{}
	if err := sonic.ConfigStd.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	if claims == nil {
		return nil, errors.New("payload is not a JSON object")
	}
	return claims, nil
}

// userID prefers the subject claim, then metadata, then the fallback
func userID(claims jwt.MapClaims, metadata map[string]any, policy Policy) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := metadata["userId"].(string); ok && id != "" {
		return id
	}
	if policy.FallbackUserID != "" {
		return policy.FallbackUserID
	}
	return DefaultPolicy().FallbackUserID
}

func displayName(claims jwt.MapClaims) string {
	for _, key := range []string{"name", "preferred_username"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (p Policy) ttl() time.Duration {
	if p.DefaultTTL <= 0 {
		return DefaultPolicy().DefaultTTL
	}
	return p.DefaultTTL
}

func failed(kind ErrorKind, message string) Session {
	return Session{Status: StatusError, ErrorKind: kind, Error: message}
}
