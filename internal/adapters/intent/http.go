package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/forecasthub/internal/domain/model"
)

const (
	defaultTimeout     = 10 * time.Second
	maxReplyBytes      = 1 << 20
	breakerMaxRequests = 1
	breakerInterval    = time.Minute
	breakerOpenTimeout = 30 * time.Second
	breakerTripAfter   = 3
)

type extractRequest struct {
	Message  string         `json:"message"`
	Forecast model.Timeline `json:"forecast"`
}

// HTTPExtractor posts chat messages to an extraction service.
type HTTPExtractor struct {
	url     string
	client  *http.Client
	timeout time.Duration
	circuit *gobreaker.CircuitBreaker
}

// NewHTTPExtractor creates an extractor for the service at url.
func NewHTTPExtractor(url string, opts ...HTTPOption) *HTTPExtractor {
	e := &HTTPExtractor{
		url:     url,
		client:  http.DefaultClient,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "intent",
		MaxRequests: breakerMaxRequests,
		Interval:    breakerInterval,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerTripAfter
		},
	})
	return e
}

func (e *HTTPExtractor) Extract(ctx context.Context, message string, forecast model.Timeline) (Reply, error) {
	body, err := json.Marshal(extractRequest{Message: message, Forecast: forecast})
	if err != nil {
		return Reply{}, fmt.Errorf("encode intent request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.circuit.Execute(func() (interface{}, error) {
		return e.post(ctx, body)
	})
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return out.(Reply), nil
}

func (e *HTTPExtractor) post(ctx context.Context, body []byte) (Reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return Reply{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return Reply{}, fmt.Errorf("intent service status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return Reply{}, err
	}
	return decodeReply(raw)
}

// decodeReply accepts either a bare JSON object or one embedded in text.
func decodeReply(raw []byte) (Reply, error) {
	var reply Reply
	if err := json.Unmarshal(raw, &reply); err == nil {
		return reply, nil
	}
	start := bytes.IndexByte(raw, '{')
	end := bytes.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return Reply{}, ErrMalformedReply
	}
	if err := json.Unmarshal(raw[start:end+1], &reply); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return reply, nil
}
