// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Durations are configured in milliseconds and exposed through helpers.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8567".
	Addr string `koanf:"addr"`

	// HorizonHours is the number of hourly records in a baseline.
	HorizonHours int `koanf:"horizon_hours"`

	// BaselineSeed seeds the synthetic generator; 0 picks a random seed.
	BaselineSeed uint64 `koanf:"baseline_seed"`

	// BaselineStart pins the first record (RFC3339). Empty means next full hour.
	BaselineStart string `koanf:"baseline_start"`

	// CommandQueueSize bounds the hub's command mailbox.
	CommandQueueSize int `koanf:"command_queue_size"`

	// SendBuffer bounds each connection's outbound frame buffer.
	SendBuffer int `koanf:"send_buffer"`

	// SendTimeoutMS bounds a single broadcast send to one connection.
	SendTimeoutMS int `koanf:"send_timeout_ms"`

	// WriteTimeoutMS bounds one websocket write.
	WriteTimeoutMS int `koanf:"write_timeout_ms"`

	// PongTimeoutMS is how long a connection may stay silent before it is dropped.
	PongTimeoutMS int `koanf:"pong_timeout_ms"`

	// MaxMessageBytes caps inbound websocket frames.
	MaxMessageBytes int64 `koanf:"max_message_bytes"`

	// ChatRatePerSec and ChatBurst limit chat messages per connection.
	ChatRatePerSec float64 `koanf:"chat_rate_per_sec"`
	ChatBurst      int     `koanf:"chat_burst"`

	// IntentURL is the extraction service endpoint. Empty disables extraction.
	IntentURL string `koanf:"intent_url"`

	// IntentTimeoutMS bounds one extraction call.
	IntentTimeoutMS int `koanf:"intent_timeout_ms"`

	// DedupeSize sets the size of the request id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// AllowedOrigins lists websocket and CORS origins; "*" allows any.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":8567",
		HorizonHours:     168,
		CommandQueueSize: 64,
		SendBuffer:       16,
		SendTimeoutMS:    2_000,
		WriteTimeoutMS:   5_000,
		PongTimeoutMS:    60_000,
		MaxMessageBytes:  64 << 10,
		ChatRatePerSec:   1,
		ChatBurst:        3,
		IntentTimeoutMS:  10_000,
		DedupeSize:       10_000,
		AllowedOrigins:   []string{"*"},
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.HorizonHours <= 0:
		return fmt.Errorf("%w: horizon_hours must be positive", ErrInvalidConfig)
	case c.CommandQueueSize <= 0:
		return fmt.Errorf("%w: command_queue_size must be positive", ErrInvalidConfig)
	case c.SendBuffer <= 0:
		return fmt.Errorf("%w: send_buffer must be positive", ErrInvalidConfig)
	case c.SendTimeoutMS <= 0 || c.WriteTimeoutMS <= 0 || c.PongTimeoutMS <= 0 || c.IntentTimeoutMS <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	case c.ChatRatePerSec <= 0 || c.ChatBurst <= 0:
		return fmt.Errorf("%w: chat rate and burst must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := c.Start(); err != nil {
		return err
	}
	return nil
}

// Start parses BaselineStart. A zero time means "next full hour".
func (c *Config) Start() (time.Time, error) {
	if c.BaselineStart == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, c.BaselineStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: baseline_start: %v", ErrInvalidConfig, err)
	}
	return t, nil
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// SendTimeout returns SendTimeoutMS as a duration.
func (c *Config) SendTimeout() time.Duration { return ms(c.SendTimeoutMS) }

// WriteTimeout returns WriteTimeoutMS as a duration.
func (c *Config) WriteTimeout() time.Duration { return ms(c.WriteTimeoutMS) }

// PongTimeout returns PongTimeoutMS as a duration.
func (c *Config) PongTimeout() time.Duration { return ms(c.PongTimeoutMS) }

// IntentTimeout returns IntentTimeoutMS as a duration.
func (c *Config) IntentTimeout() time.Duration { return ms(c.IntentTimeoutMS) }
