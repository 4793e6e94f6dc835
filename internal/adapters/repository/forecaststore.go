package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/forecasthub/internal/domain/model"
	"github.com/okian/forecasthub/internal/domain/modification"
	"github.com/okian/forecasthub/pkg/logger"
	"github.com/okian/forecasthub/pkg/metrics"
)

// ForecastStore is the in-memory Store. A single RWMutex guards the
// timeline, the log and the version; snapshots copy under the read lock.
type ForecastStore struct {
	mu       sync.RWMutex
	timeline model.Timeline
	log      []model.Modification
	version  uint64

	now    func() time.Time
	logger logger.Logger
}

// NewForecastStore creates an empty store.
func NewForecastStore(opts ...Option) *ForecastStore {
	s := &ForecastStore{
		timeline: model.Timeline{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("store")
	}
	return s
}

func (s *ForecastStore) Initialize(ctx context.Context, baseline model.Timeline) error {
	if err := baseline.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBaseline, err)
	}
	owned := baseline.Clone()

	s.mu.Lock()
	s.timeline = owned
	s.log = nil
	s.version++
	version := s.version
	s.mu.Unlock()

	metrics.UpdateForecastState(version, 0)
	s.logger.Info(ctx, "forecast initialized",
		logger.Int("records", len(owned)),
		logger.Uint64("version", version),
	)
	return nil
}

func (s *ForecastStore) Reset(ctx context.Context, baseline model.Timeline) error {
	if err := s.Initialize(ctx, baseline); err != nil {
		return err
	}
	metrics.RecordReset()
	return nil
}

func (s *ForecastStore) Apply(ctx context.Context, mod model.Modification) (int, error) {
	if err := modification.Validate(mod); err != nil {
		metrics.RecordModificationRejected(modification.ReasonOf(err))
		return 0, err
	}

	s.mu.Lock()
	changed := modification.Apply(s.timeline, mod)
	s.log = append(s.log, mod)
	s.version++
	version, logLen := s.version, len(s.log)
	s.mu.Unlock()

	metrics.RecordModificationApplied(string(mod.Metric), string(mod.EditType), changed)
	metrics.UpdateForecastState(version, logLen)
	s.logger.Debug(ctx, "modification applied",
		logger.String("metric", string(mod.Metric)),
		logger.String("edit_type", string(mod.EditType)),
		logger.Float64("value", mod.Value),
		logger.String("start_date", mod.StartDate.String()),
		logger.String("end_date", mod.EndDate.String()),
		logger.Int("records_changed", changed),
	)
	return changed, nil
}

func (s *ForecastStore) Snapshot(_ context.Context) model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mods := make([]model.Modification, len(s.log))
	copy(mods, s.log)
	return model.Snapshot{
		Forecast:      s.timeline.Clone(),
		Modifications: mods,
		Version:       s.version,
		TakenAt:       s.now(),
	}
}

func (s *ForecastStore) Version(_ context.Context) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
