package baseline

import "time"

type options struct {
	seed *uint64
}

// Option applies a configuration option to the Synthetic generator.
type Option func(*Synthetic, *options)

// WithHorizon sets the number of hourly records.
func WithHorizon(hours int) Option {
	return func(s *Synthetic, _ *options) {
		if hours > 0 {
			s.horizon = hours
		}
	}
}

// WithStart pins the first record's timestamp, truncated to the hour.
func WithStart(start time.Time) Option {
	return func(s *Synthetic, _ *options) {
		if !start.IsZero() {
			s.start = start.Truncate(time.Hour)
		}
	}
}

// WithSeed makes the noise reproducible.
func WithSeed(seed uint64) Option {
	return func(_ *Synthetic, o *options) {
		o.seed = &seed
	}
}

// WithClock overrides the time source used to pick the default start.
func WithClock(now func() time.Time) Option {
	return func(s *Synthetic, _ *options) {
		if now != nil {
			s.now = now
		}
	}
}
