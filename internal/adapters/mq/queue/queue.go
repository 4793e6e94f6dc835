// Package queue provides bounded in-memory FIFO queues.
//
// The hub uses one as its command mailbox and every observer connection
// uses one as its outbound frame buffer.
package queue

import (
	"context"
	"sync"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
)

// Queue provides bounded enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds an item without blocking.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, item T) bool

	// EnqueueWait adds an item, waiting for space until ctx ends.
	// Returns false if ctx ended first or the queue is closed.
	EnqueueWait(ctx context.Context, item T) bool

	// Dequeue returns the channel items are delivered on.
	// The channel is closed when the queue is closed.
	Dequeue() <-chan T

	// Len returns the current number of queued items.
	Len() int

	// Cap returns the queue capacity.
	Cap() int

	// Close stops accepting items. Already queued items remain readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	items    chan T
	capacity int
	observe  func(size, capacity int)

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	cfg := config{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	q := &InMemoryQueue[T]{
		items:    make(chan T, cfg.capacity),
		capacity: cfg.capacity,
		observe:  cfg.observe,
	}
	q.report()
	return q
}

// Enqueue adds an item to the queue without blocking.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || ctx.Err() != nil {
		return false
	}
	select {
	case q.items <- item:
		q.report()
		return true
	default:
		return false
	}
}

// EnqueueWait adds an item, blocking until there is space or ctx ends.
func (q *InMemoryQueue[T]) EnqueueWait(ctx context.Context, item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}
	select {
	case q.items <- item:
		q.report()
		return true
	case <-ctx.Done():
		return false
	}
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue[T]) Dequeue() <-chan T {
	return q.items
}

// Len returns the current number of queued items.
func (q *InMemoryQueue[T]) Len() int {
	n := len(q.items)
	if q.observe != nil {
		q.observe(n, q.capacity)
	}
	return n
}

// Cap returns the queue capacity.
func (q *InMemoryQueue[T]) Cap() int { return q.capacity }

// Close gracefully shuts down the queue.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue[T]) report() {
	if q.observe != nil {
		q.observe(len(q.items), q.capacity)
	}
}
