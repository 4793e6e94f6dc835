package repository

import (
	"time"

	"github.com/okian/forecasthub/pkg/logger"
)

// Option applies a configuration option to the ForecastStore.
type Option func(*ForecastStore)

// WithClock overrides the time source used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *ForecastStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *ForecastStore) {
		if l != nil {
			s.logger = l
		}
	}
}
