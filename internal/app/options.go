package service

import (
	"time"

	"github.com/okian/forecasthub/internal/adapters/intent"
	"github.com/okian/forecasthub/internal/adapters/registry"
	"github.com/okian/forecasthub/internal/adapters/repository"
	"github.com/okian/forecasthub/internal/domain/baseline"
	"github.com/okian/forecasthub/pkg/logger"
)

const (
	defaultQueueSize   = 64
	defaultDedupeSize  = 10_000
	defaultSendTimeout = 2 * time.Second
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the capacity of the command mailbox.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the request id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSendTimeout bounds sends to a single connection.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

// WithStore sets the forecast store.
func WithStore(st repository.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithRegistry sets the connection registry.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Service) { s.registry = r }
}

// WithGenerator sets the baseline generator.
func WithGenerator(g baseline.Generator) Option {
	return func(s *Service) { s.generator = g }
}

// WithExtractor sets the intent extractor used for chat messages.
func WithExtractor(e intent.Extractor) Option {
	return func(s *Service) { s.extractor = e }
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
