package registry

import (
	"time"

	"github.com/okian/forecasthub/pkg/logger"
)

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithSendTimeout bounds every per-connection send.
func WithSendTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.sendTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the registry.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}
