package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/okian/forecasthub/internal/domain/model"
	"github.com/okian/forecasthub/internal/domain/modification"
	"github.com/okian/forecasthub/internal/domain/types"
	"github.com/okian/forecasthub/pkg/logger"
)

type batchRequest struct {
	RequestID     string                 `json:"request_id"`
	Modifications []modification.Request `json:"modifications"`
}

type batchResponse struct {
	Status    string              `json:"status"`
	Duplicate bool                `json:"duplicate"`
	Version   uint64              `json:"version"`
	Results   []model.ApplyResult `json:"results"`
}

// Run executes the complete probe.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	start := time.Now()
	stats := &Stats{Observers: config.Observers}
	log := logger.Get().Named("probe")
	client := newHTTPClient(config.Timeout)

	log.Info(ctx, "starting hub probe",
		logger.String("baseURL", config.BaseURL),
		logger.Int("observers", config.Observers),
		logger.Duration("timeout", config.Timeout))

	// Step 1: Check service health
	var health map[string]string
	if code, err := client.GetJSON(ctx, config.BaseURL+"/healthz", &health); err != nil || code != http.StatusOK || health["status"] != "ok" {
		return nil, fmt.Errorf("%w: status %d: %v", ErrUnhealthy, code, err)
	}

	// Step 2: Connect observers and wait for their initial snapshot
	observers := make([]*observer, 0, config.Observers)
	defer func() {
		for _, o := range observers {
			o.close()
		}
	}()
	for i := 0; i < config.Observers; i++ {
		o, err := dialObserver(ctx, config.BaseURL, i)
		if err != nil {
			return nil, err
		}
		observers = append(observers, o)
		env, err := o.next(types.TypeInitialData, time.Now().Add(config.Timeout))
		if err != nil {
			return nil, err
		}
		var p types.ForecastPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("observer %d initial data: %w", i, err)
		}
		if len(p.Forecast) == 0 {
			return nil, fmt.Errorf("observer %d: empty forecast", i)
		}
		if i == 0 {
			stats.InitialVersion = p.Version
		}
		if config.Verbose {
			log.Info(ctx, "observer connected", logger.Int("observer", i), logger.Uint64("version", p.Version))
		}
	}

	// Step 3: Submit one batch that touches the first forecast day
	var current types.ForecastPayload
	if _, err := client.GetJSON(ctx, config.BaseURL+"/forecast", &current); err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}
	if len(current.Forecast) == 0 {
		return nil, fmt.Errorf("fetch forecast: empty timeline")
	}
	req := batchRequest{
		RequestID:     uuid.NewString(),
		Modifications: []modification.Request{probeModification(current.Forecast[0].Date())},
	}
	var resp batchResponse
	code, err := client.PostJSON(ctx, config.BaseURL+"/modifications", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("submit batch: %w", err)
	}
	if code != http.StatusOK || len(resp.Results) != 1 || !resp.Results[0].Applied {
		return nil, fmt.Errorf("%w: status %d", ErrRejected, code)
	}
	stats.UpdatedVersion = resp.Version
	stats.RecordsChanged = resp.Results[0].RecordsChanged

	// Step 4: Every observer must see the same update
	deadline := time.Now().Add(config.Timeout)
	var reference json.RawMessage
	for _, o := range observers {
		data, version, err := o.awaitVersion(resp.Version, deadline)
		if err != nil {
			return nil, err
		}
		if version != resp.Version {
			return nil, fmt.Errorf("%w: observer %d saw version %d, want %d", ErrMismatch, o.id, version, resp.Version)
		}
		if reference == nil {
			reference = data
			continue
		}
		if !bytes.Equal(reference, data) {
			return nil, fmt.Errorf("%w: observer %d", ErrMismatch, o.id)
		}
	}
	stats.Identical = true

	// Step 5: Resubmitting the same request id must be a no-op
	var dup batchResponse
	if _, err := client.PostJSON(ctx, config.BaseURL+"/modifications", req, &dup); err != nil {
		return nil, fmt.Errorf("resubmit batch: %w", err)
	}
	stats.DuplicateHonour = dup.Duplicate
	if !dup.Duplicate {
		return nil, fmt.Errorf("%w: duplicate request id was applied again", ErrMismatch)
	}

	stats.Duration = time.Since(start)
	log.Info(ctx, "probe completed successfully",
		logger.Int("observers", stats.Observers),
		logger.Uint64("initialVersion", stats.InitialVersion),
		logger.Uint64("updatedVersion", stats.UpdatedVersion),
		logger.Int("recordsChanged", stats.RecordsChanged),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}

// probeModification nudges security by one on day d.
func probeModification(d model.Date) modification.Request {
	one := 1.0
	return modification.Request{
		Metric:    string(model.MetricSecurity),
		EditType:  string(model.EditAbsolute),
		Value:     &one,
		StartDate: d.String(),
		EndDate:   d.String(),
		Reason:    "hubprobe",
	}
}
