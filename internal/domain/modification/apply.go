// Package modification validates and applies forecast edits.
//
// Application reads each record's current stored value, so repeated or
// overlapping edits compose cumulatively in application order.
package modification

import (
	"fmt"
	"math"

	"github.com/okian/forecasthub/internal/domain/model"
)

const percentDivisor = 100.0

// Validate checks a typed modification. It never mutates anything.
func Validate(mod model.Modification) error {
	if !mod.Metric.Valid() {
		return reject(ReasonUnknownMetric, fmt.Errorf("%w: %q", ErrUnknownMetric, mod.Metric))
	}
	if !mod.EditType.Valid() {
		return reject(ReasonUnknownEditType, fmt.Errorf("%w: %q", ErrUnknownEditType, mod.EditType))
	}
	if mod.StartDate.IsZero() || mod.EndDate.IsZero() {
		return reject(ReasonInvalidDate, ErrInvalidDate)
	}
	if mod.StartDate.Compare(mod.EndDate) > 0 {
		return reject(ReasonInvertedRange, fmt.Errorf("%w: %s > %s", ErrInvertedRange, mod.StartDate, mod.EndDate))
	}
	if math.IsNaN(mod.Value) || math.IsInf(mod.Value, 0) {
		return reject(ReasonNonFiniteValue, ErrNonFiniteValue)
	}
	return nil
}

// Compute combines the current value v with x according to edit type e.
func Compute(e model.EditType, v, x float64) float64 {
	switch e {
	case model.EditPercentage:
		return v * (1 + x/percentDivisor)
	case model.EditAbsolute:
		return v + x
	case model.EditSet:
		return x
	}
	return v
}

// Clamp bounds v to the storable range of metric m.
func Clamp(m model.Metric, v float64) float64 {
	if m == model.MetricRooms {
		return math.Max(model.MinRooms, math.Min(model.MaxRooms, v))
	}
	return math.Max(0, math.Min(model.MaxCount, v))
}

// Apply mutates every record of t whose date falls in the modification's
// range and returns how many records actually changed. mod must already be
// valid.
func Apply(t model.Timeline, mod model.Modification) int {
	changed := 0
	for i := range t {
		rec := &t[i]
		if !rec.Date().Within(mod.StartDate, mod.EndDate) {
			continue
		}
		before := rec.Value(mod.Metric)
		rec.Set(mod.Metric, Clamp(mod.Metric, Compute(mod.EditType, before, mod.Value)))
		if rec.Value(mod.Metric) != before {
			changed++
		}
	}
	return changed
}
