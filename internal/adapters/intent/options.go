package intent

import (
	"net/http"
	"time"
)

// HTTPOption applies a configuration option to the HTTPExtractor.
type HTTPOption func(*HTTPExtractor)

// WithTimeout bounds each extraction call.
func WithTimeout(d time.Duration) HTTPOption {
	return func(e *HTTPExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(e *HTTPExtractor) {
		if c != nil {
			e.client = c
		}
	}
}
