// Package repository holds the canonical forecast state.
package repository

import (
	"context"

	"github.com/okian/forecasthub/internal/domain/model"
)

// Store provides read/write access to the forecast timeline and its
// modification log. Mutations are serialized by the implementation.
type Store interface {
	// Initialize replaces the timeline with baseline and clears the log.
	Initialize(ctx context.Context, baseline model.Timeline) error

	// Apply validates mod and, when valid, applies it to every record in its
	// date range and appends it to the log. Returns the number of records
	// whose value changed. A rejected modification leaves the state untouched.
	Apply(ctx context.Context, mod model.Modification) (int, error)

	// Reset discards all edits by re-initializing from baseline.
	Reset(ctx context.Context, baseline model.Timeline) error

	// Snapshot returns copies safe to share with any number of readers.
	Snapshot(ctx context.Context) model.Snapshot

	// Version returns the number of successful mutations so far.
	Version(ctx context.Context) uint64
}
