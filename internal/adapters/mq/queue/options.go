package queue

type config struct {
	capacity int
	observe  func(size, capacity int)
}

// Option applies a configuration option to an InMemoryQueue.
type Option func(*config)

// WithCapacity sets the maximum number of buffered items.
func WithCapacity(capacity int) Option {
	return func(c *config) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithObserver registers a callback invoked with the current size and
// capacity whenever the queue grows or is measured.
func WithObserver(fn func(size, capacity int)) Option {
	return func(c *config) {
		c.observe = fn
	}
}
