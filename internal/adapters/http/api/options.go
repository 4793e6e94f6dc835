package api

import (
	"net/http"

	"github.com/okian/forecasthub/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithWebSocket mounts h at GET /ws.
func WithWebSocket(h http.Handler) Option {
	return func(s *Server) { s.ws = h }
}

// WithAllowedOrigins sets the CORS origin allow-list.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
