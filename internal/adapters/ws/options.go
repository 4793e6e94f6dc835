package ws

import (
	"time"

	"github.com/okian/forecasthub/pkg/logger"
)

const (
	defaultSendBuffer      = 16
	defaultWriteTimeout    = 5 * time.Second
	defaultPongTimeout     = 60 * time.Second
	defaultMaxMessageBytes = 64 << 10
	defaultChatRate        = 1.0
	defaultChatBurst       = 3
)

type config struct {
	sendBuffer      int
	writeTimeout    time.Duration
	pongTimeout     time.Duration
	maxMessageBytes int64
	chatRate        float64
	chatBurst       int
	allowedOrigins  []string
	logger          logger.Logger
}

// pingInterval keeps pings comfortably inside the pong timeout.
func (c config) pingInterval() time.Duration {
	return c.pongTimeout * 9 / 10
}

// Option applies a configuration option to the Handler.
type Option func(*config)

// WithSendBuffer bounds the per-connection outbound buffer.
func WithSendBuffer(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.sendBuffer = n
		}
	}
}

// WithWriteTimeout bounds a single socket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithPongTimeout sets how long a silent peer is kept.
func WithPongTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pongTimeout = d
		}
	}
}

// WithMaxMessageBytes caps inbound frames.
func WithMaxMessageBytes(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxMessageBytes = n
		}
	}
}

// WithChatRate limits chat messages per connection.
func WithChatRate(perSec float64, burst int) Option {
	return func(c *config) {
		if perSec > 0 && burst > 0 {
			c.chatRate, c.chatBurst = perSec, burst
		}
	}
}

// WithAllowedOrigins restricts upgrade origins; "*" allows any.
func WithAllowedOrigins(origins []string) Option {
	return func(c *config) {
		if len(origins) > 0 {
			c.allowedOrigins = origins
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
