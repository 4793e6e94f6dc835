// Package registry tracks live observer connections and fans payloads out
// to them with per-connection failure isolation.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/forecasthub/pkg/logger"
	"github.com/okian/forecasthub/pkg/metrics"
)

const defaultSendTimeout = 2 * time.Second

// Conn is one observer connection as seen by the registry.
type Conn interface {
	ID() string
	// Send delivers one frame. It must return once ctx ends.
	Send(ctx context.Context, frame []byte) error
	Close() error
}

// PayloadFunc builds the frame a joining connection receives. It runs while
// the registry holds its write lock so no broadcast can interleave.
type PayloadFunc func(ctx context.Context) ([]byte, error)

// Result summarizes one broadcast.
type Result struct {
	Delivered int
	Failed    int
}

// Registry is the set of live connections.
type Registry struct {
	mu          sync.RWMutex
	conns       map[string]Conn
	sendTimeout time.Duration
	logger      logger.Logger
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		conns:       make(map[string]Conn),
		sendTimeout: defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("registry")
	}
	return r
}

// Join registers conn and sends it the frame built by initial. If the
// initial send fails the connection is not kept.
func (r *Registry) Join(ctx context.Context, conn Conn, initial PayloadFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID()]; ok {
		return ErrAlreadyJoined
	}
	frame, err := initial(ctx)
	if err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	if err := conn.Send(sendCtx, frame); err != nil {
		metrics.RecordDeliveryFailure(causeOf(err))
		_ = conn.Close()
		return errors.Join(ErrInitialSend, err)
	}

	r.conns[conn.ID()] = conn
	metrics.RecordConnectionEvent("join")
	metrics.UpdateActiveConnections(len(r.conns))
	r.logger.Info(ctx, "connection joined",
		logger.String("conn_id", conn.ID()),
		logger.Int("connections", len(r.conns)),
	)
	return nil
}

// Leave removes conn. Removing an unknown connection is a no-op.
func (r *Registry) Leave(ctx context.Context, conn Conn) {
	r.mu.Lock()
	_, ok := r.conns[conn.ID()]
	if ok {
		delete(r.conns, conn.ID())
	}
	n := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return
	}
	metrics.RecordConnectionEvent("leave")
	metrics.UpdateActiveConnections(n)
	r.logger.Info(ctx, "connection left",
		logger.String("conn_id", conn.ID()),
		logger.Int("connections", n),
	)
}

// Broadcast delivers frame to every connection registered at call time.
// Sends run in parallel, each bounded by the send timeout. Connections whose
// send fails are removed and closed.
func (r *Registry) Broadcast(ctx context.Context, msgType string, frame []byte) Result {
	start := time.Now()

	r.mu.RLock()
	targets := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, c := range targets {
		wg.Add(1)
		go func(i int, c Conn) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
			defer cancel()
			errs[i] = c.Send(sendCtx, frame)
		}(i, c)
	}
	wg.Wait()

	var res Result
	for i, err := range errs {
		if err == nil {
			res.Delivered++
			continue
		}
		res.Failed++
		c := targets[i]
		metrics.RecordDeliveryFailure(causeOf(err))
		r.logger.Warn(ctx, "delivery failed, dropping connection",
			logger.String("conn_id", c.ID()),
			logger.Error(err),
		)
		r.Leave(ctx, c)
		_ = c.Close()
	}

	metrics.RecordBroadcast(msgType, float64(time.Since(start).Microseconds())/1000.0)
	r.logger.Debug(ctx, "broadcast complete",
		logger.String("type", msgType),
		logger.Int("delivered", res.Delivered),
		logger.Int("failed", res.Failed),
	)
	return res
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes and removes every connection.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]Conn)
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	metrics.UpdateActiveConnections(0)
	r.logger.Info(ctx, "all connections closed", logger.Int("count", len(conns)))
}

func causeOf(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
