package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/shared/id"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/shared/utils"
)

var (
	ErrNoEndpoint   = errors.New("agent endpoint not configured")
	ErrMissingToken = errors.New("bearer token required")
	ErrUnavailable  = errors.New("agent runtime unavailable")
)

// Config for the runtime client
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RateLimit is requests per second across the process, 0 for unlimited
	RateLimit float64
}

// DefaultConfig returns client defaults
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
	}
}

// Message is a user turn sent on the page's behalf
type Message struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id,omitempty"`
	Text      string         `json:"text"`
	Context   map[string]any `json:"context,omitempty"`
}

// Postback is a widget interaction forwarded to the agent
type Postback struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id,omitempty"`
	Payload   map[string]any `json:"payload"`
	Context   map[string]any `json:"context,omitempty"`
}

// Client posts to the agent runtime with Authorization: Bearer <token>
type Client struct {
	baseURL string
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *zap.Logger
}

// NewClient creates a runtime client over a retrying transport
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	restyClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "EcoAssist-Gateway/1.0").
		SetHeader("Content-Type", "application/json")
	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1)
	}

	breaker := resilience.New("agent-runtime", resilience.Settings{
		Probes:   3,
		Window:   60 * time.Second,
		Cooldown: 30 * time.Second,
		Trip:     resilience.ConsecutiveFailures(5),
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		baseURL: baseURL,
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
	}
}

// Configured reports whether a base URL was set
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// SendMessage posts a user turn
func (c *Client) SendMessage(ctx context.Context, token string, msg Message) error {
	if err := utils.ValidateMessage(msg.Text); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	return c.post(ctx, token, "/messages", msg)
}

// Postback forwards a widget interaction
func (c *Client) Postback(ctx context.Context, token string, pb Postback) error {
	return c.post(ctx, token, "/postbacks", pb)
}

// BreakerState returns the current circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

func (c *Client) post(ctx context.Context, token, path string, body interface{}) error {
	if !c.Configured() {
		return ErrNoEndpoint
	}
	if token == "" {
		return ErrMissingToken
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	requestID := id.NewRequestID()
	err := c.breaker.Do(func() error {
		resp, err := c.resty.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetHeader("X-Request-ID", requestID.String()).
			SetHeaders(tracing.Headers(ctx)).
			SetBody(body).
			Post(path)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("agent runtime returned %d", resp.StatusCode())
		}
		return nil
	})

	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		c.logger.Warn("Agent request failed",
			zap.String("path", path),
			zap.String("request_id", requestID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
