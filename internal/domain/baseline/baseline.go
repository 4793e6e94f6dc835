// Package baseline produces the hourly forecast a store is initialized and
// reset from.
package baseline

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/forecasthub/internal/domain/model"
)

// Generator returns a fresh baseline timeline.
type Generator interface {
	Generate(ctx context.Context) (model.Timeline, error)
}

// Noise standard deviations per metric.
const (
	roomsNoise    = 5.0
	cleaningNoise = 10.0
	securityNoise = 5.0
)

// Synthetic generates a resort-like occupancy profile with gaussian noise.
type Synthetic struct {
	horizon int
	start   time.Time
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthetic creates a generator. Without WithStart the timeline begins at
// the next full hour after each call to Generate.
func NewSynthetic(opts ...Option) *Synthetic {
	s := &Synthetic{
		horizon: model.DefaultHorizonHours,
		now:     time.Now,
	}
	seed := uint64(time.Now().UnixNano())
	cfg := options{seed: &seed}
	for _, opt := range opts {
		opt(s, &cfg)
	}
	s.rng = rand.New(rand.NewPCG(*cfg.seed, *cfg.seed^0x9e3779b97f4a7c15))
	return s
}

func (s *Synthetic) Generate(ctx context.Context) (model.Timeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := s.start
	if start.IsZero() {
		start = s.now().Truncate(time.Hour).Add(time.Hour)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tl := make(model.Timeline, s.horizon)
	for i := range tl {
		at := start.Add(time.Duration(i) * time.Hour)
		rooms, cleaning, security := Profile(at)
		tl[i] = model.HourlyRecord{
			Timestamp: at,
			Rooms:     clip(rooms+s.rng.NormFloat64()*roomsNoise, model.MinRooms, model.MaxRooms),
			Cleaning:  int(math.Max(0, cleaning+s.rng.NormFloat64()*cleaningNoise)),
			Security:  int(math.Max(0, security+s.rng.NormFloat64()*securityNoise)),
		}
	}
	return tl, nil
}

// Profile returns the noiseless expected values for the hour at t.
// Friday through Sunday count as weekend.
func Profile(t time.Time) (rooms, cleaning, security float64) {
	h := float64(t.Hour())
	wave := math.Sin(2 * math.Pi * h / 24)
	weekend := 0.0
	switch t.Weekday() {
	case time.Friday, time.Saturday, time.Sunday:
		weekend = 1
	}

	if weekend == 1 {
		rooms = 85 + 10*wave
	} else {
		rooms = 70 + 15*wave
	}

	switch hour := t.Hour(); {
	case hour >= 10 && hour <= 14:
		cleaning = 80 + rooms*0.8
	case hour >= 18 && hour <= 20:
		cleaning = 40 + rooms*0.3
	default:
		cleaning = 20 + rooms*0.1
	}

	if hour := t.Hour(); hour >= 22 || hour <= 4 {
		security = 40 + weekend*20 + 10
	} else {
		security = 20 + weekend*10 + 5
	}
	return rooms, cleaning, security
}

func clip(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
