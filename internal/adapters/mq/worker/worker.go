// Package worker runs the single consumer that drains a command queue.
//
// Exactly one Worker serves a queue, so handled items never overlap.
package worker

import (
	"context"
	"fmt"

	"github.com/okian/forecasthub/pkg/logger"
)

// Source defines how the worker receives items.
type Source[T any] interface {
	Dequeue() <-chan T
}

// Handler processes one item. It is never called concurrently.
type Handler[T any] func(ctx context.Context, item T)

// Worker processes items from a Source one at a time.
type Worker[T any] struct {
	source Source[T]
	handle Handler[T]
	name   string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// New creates a worker over source with handler h.
func New[T any](source Source[T], h Handler[T], opts ...Option) *Worker[T] {
	cfg := config{name: "worker"}
	for _, opt := range opts {
		opt(&cfg)
	}
	w := &Worker[T]{
		source:   source,
		handle:   h,
		name:     cfg.name,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   cfg.logger,
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop; it returns when ctx ends, Shutdown is called,
// or the source channel closes.
func (w *Worker[T]) Run(ctx context.Context) {
	defer close(w.done)

	items := w.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case item, ok := <-items:
			if !ok {
				return
			}
			w.process(ctx, item)
		}
	}
}

// process shields the loop from a panicking handler.
func (w *Worker[T]) process(ctx context.Context, item T) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(ctx, "handler panicked", logger.Any("panic", r))
		}
	}()
	w.handle(ctx, item)
}

// Done is closed once Run has returned.
func (w *Worker[T]) Done() <-chan struct{} { return w.done }

// Shutdown signals the loop to stop and waits for it or for ctx.
func (w *Worker[T]) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out", logger.String("worker", w.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
