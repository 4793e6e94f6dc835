// Package probe drives a running hub end to end: it connects observers,
// submits a modification batch over HTTP and checks that every observer
// received the same update.
package probe

import (
	"errors"
	"time"
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Observers int           // Number of websocket observers
	Timeout   time.Duration // Per-step timeout
	Verbose   bool          // Enable verbose logging
}

// Stats holds probe results.
type Stats struct {
	Observers       int
	InitialVersion  uint64
	UpdatedVersion  uint64
	RecordsChanged  int
	Identical       bool
	DuplicateHonour bool
	Duration        time.Duration
}

var (
	// ErrUnhealthy is returned when /healthz does not answer ok.
	ErrUnhealthy = errors.New("service unhealthy")
	// ErrMismatch is returned when observers disagree on the update.
	ErrMismatch = errors.New("observers received different updates")
	// ErrNoUpdate is returned when an observer never saw the update.
	ErrNoUpdate = errors.New("update not received")
	// ErrRejected is returned when the probe batch was not applied.
	ErrRejected = errors.New("probe batch rejected")
)
