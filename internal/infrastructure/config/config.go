package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Host      HostConfig      `yaml:"host"`
	Session   SessionConfig   `yaml:"session"`
	Agent     AgentConfig     `yaml:"agent"`
	Widgets   WidgetConfig    `yaml:"widgets"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000" yaml:"port"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" yaml:"shutdown_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// CORSConfig holds the origins allowed to call the HTTP API.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000" yaml:"allowed_origins"`
}

// HostConfig holds the document origins the embedding host may post from.
type HostConfig struct {
	AllowedOrigins []string `envconfig:"HOST_ALLOWED_ORIGINS" default:"http://localhost:3000" yaml:"allowed_origins"`
}

// SessionConfig holds session bootstrap policy.
type SessionConfig struct {
	DefaultTTL     time.Duration `envconfig:"SESSION_DEFAULT_TTL" default:"30m" yaml:"default_ttl"`
	FallbackUserID string        `envconfig:"SESSION_FALLBACK_USER" default:"eco-user" yaml:"fallback_user"`
	RejectExpired  bool          `envconfig:"SESSION_REJECT_EXPIRED" default:"false" yaml:"reject_expired"`
}

// AgentConfig holds the agent runtime client configuration.
type AgentConfig struct {
	BaseURL        string        `envconfig:"AGENT_URL" default:"" yaml:"base_url"`
	Timeout        time.Duration `envconfig:"AGENT_TIMEOUT" default:"30s" yaml:"timeout"`
	MaxRetries     int           `envconfig:"AGENT_MAX_RETRIES" default:"3" yaml:"max_retries"`
	RateLimit      float64       `envconfig:"AGENT_RATE_LIMIT" default:"0" yaml:"rate_limit"`
	RequestTimeout time.Duration `envconfig:"AGENT_REQUEST_TIMEOUT" default:"2m" yaml:"request_timeout"`
}

// WidgetConfig bounds agent supplied widget payloads.
type WidgetConfig struct {
	MaxBytes int `envconfig:"WIDGET_MAX_BYTES" default:"524288" yaml:"max_bytes"`
	MaxDepth int `envconfig:"WIDGET_MAX_DEPTH" default:"20" yaml:"max_depth"`
}

// Load reads .env if present, then environment variables, then the YAML
// file named by CONFIG_FILE. Values in the file win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Address returns the listen address.
func (s ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Host: HostConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Session: SessionConfig{
			DefaultTTL:     30 * time.Minute,
			FallbackUserID: "eco-user",
		},
		Agent: AgentConfig{
			Timeout:        30 * time.Second,
			MaxRetries:     3,
			RequestTimeout: 2 * time.Minute,
		},
		Widgets: WidgetConfig{
			MaxBytes: 512 * 1024,
			MaxDepth: 20,
		},
	}
}
