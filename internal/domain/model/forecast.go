// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"time"
)

// Invariant bounds for hourly records.
const (
	MinRooms = 0.0
	MaxRooms = 99.0

	// MaxCount caps staffing counts at the largest integer a float64 holds exactly.
	MaxCount = 1 << 53
)

// DefaultHorizonHours is the default timeline length (7 days).
const DefaultHorizonHours = 168

// Sentinel kinds for timeline validation.
var (
	ErrUnordered   = errors.New("timeline timestamps not strictly increasing")
	ErrGap         = errors.New("timeline has a gap")
	ErrOutOfBounds = errors.New("record value out of bounds")
)

// Metric names an hourly forecast quantity.
type Metric string

// Known metrics.
const (
	MetricRooms    Metric = "rooms"
	MetricCleaning Metric = "cleaning"
	MetricSecurity Metric = "security"
)

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricRooms, MetricCleaning, MetricSecurity:
		return true
	}
	return false
}

// HourlyRecord is one hour of the facility forecast.
type HourlyRecord struct {
	Timestamp time.Time `json:"date"`
	Rooms     float64   `json:"rooms"`    // occupancy percentage
	Cleaning  int       `json:"cleaning"` // cleaning staff needed
	Security  int       `json:"security"` // security staff needed
}

// Date returns the calendar date of the record's instant.
func (r HourlyRecord) Date() Date {
	return DateOf(r.Timestamp)
}

// Value returns the stored value of metric m.
func (r HourlyRecord) Value(m Metric) float64 {
	switch m {
	case MetricRooms:
		return r.Rooms
	case MetricCleaning:
		return float64(r.Cleaning)
	case MetricSecurity:
		return float64(r.Security)
	}
	return 0
}

// Set stores v into metric m. Staffing counts are truncated toward zero.
// Callers clamp v beforehand.
func (r *HourlyRecord) Set(m Metric, v float64) {
	switch m {
	case MetricRooms:
		r.Rooms = v
	case MetricCleaning:
		r.Cleaning = countOf(v)
	case MetricSecurity:
		r.Security = countOf(v)
	}
}

// countOf truncates v toward zero, saturating at [0, MaxCount].
func countOf(v float64) int {
	switch {
	case !(v > 0):
		return 0
	case v >= MaxCount:
		return MaxCount
	}
	return int(v)
}

// Timeline is the ordered hourly forecast.
type Timeline []HourlyRecord

// Clone returns an independent copy of t.
func (t Timeline) Clone() Timeline {
	if t == nil {
		return Timeline{}
	}
	out := make(Timeline, len(t))
	copy(out, t)
	return out
}

// Validate checks ordering, contiguity and per-record bounds.
func (t Timeline) Validate() error {
	for i, r := range t {
		if r.Rooms < MinRooms || r.Rooms > MaxRooms || r.Cleaning < 0 || r.Security < 0 {
			return fmt.Errorf("record %d (%s): %w", i, r.Timestamp.Format(time.RFC3339), ErrOutOfBounds)
		}
		if i == 0 {
			continue
		}
		prev := t[i-1].Timestamp
		if !r.Timestamp.After(prev) {
			return fmt.Errorf("record %d: %w", i, ErrUnordered)
		}
		if r.Timestamp.Sub(prev) != time.Hour {
			return fmt.Errorf("record %d: %w", i, ErrGap)
		}
	}
	return nil
}

// Snapshot is an immutable point-in-time copy of the forecast state.
type Snapshot struct {
	Forecast      Timeline
	Modifications []Modification
	Version       uint64
	TakenAt       time.Time
}
