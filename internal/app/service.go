// Package service provides the broadcast hub: the single writer that
// applies modification batches and resets to the forecast store and fans
// every resulting snapshot out to the connected observers.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/forecasthub/internal/adapters/intent"
	"github.com/okian/forecasthub/internal/adapters/mq/queue"
	"github.com/okian/forecasthub/internal/adapters/mq/worker"
	"github.com/okian/forecasthub/internal/adapters/registry"
	"github.com/okian/forecasthub/internal/adapters/repository"
	"github.com/okian/forecasthub/internal/domain/baseline"
	"github.com/okian/forecasthub/internal/domain/dedupe"
	"github.com/okian/forecasthub/internal/domain/model"
	"github.com/okian/forecasthub/internal/domain/modification"
	"github.com/okian/forecasthub/internal/domain/types"
	"github.com/okian/forecasthub/pkg/logger"
	"github.com/okian/forecasthub/pkg/metrics"
)

// State of the hub's command loop.
type State int32

const (
	StateIdle State = iota
	StateApplying
)

func (s State) String() string {
	if s == StateApplying {
		return "applying"
	}
	return "idle"
}

type commandKind int

const (
	cmdApply commandKind = iota
	cmdReset
)

func (k commandKind) String() string {
	if k == cmdReset {
		return "reset"
	}
	return "apply"
}

type command struct {
	ctx   context.Context
	kind  commandKind
	mods  []model.Modification
	reply chan result
}

type result struct {
	out types.Outcome
	err error
}

// Service is the broadcast hub.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	registry  *registry.Registry
	generator baseline.Generator
	extractor intent.Extractor
	deduper   dedupe.Deduper
	commands  *queue.InMemoryQueue[command]
	worker    *worker.Worker[command]

	// Configuration
	queueSize   int
	dedupeSize  int
	sendTimeout time.Duration

	// State
	started bool
	state   atomic.Int32
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a hub. Components not supplied through options get
// in-memory defaults.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		sendTimeout: defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("hub")
	}
	if s.store == nil {
		s.store = repository.NewForecastStore()
	}
	if s.registry == nil {
		s.registry = registry.New(registry.WithSendTimeout(s.sendTimeout))
	}
	if s.generator == nil {
		s.generator = baseline.NewSynthetic()
	}
	if s.extractor == nil {
		s.extractor = intent.Static{}
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	return s
}

// Start loads the initial baseline and starts the command loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting hub...")

	tl, err := s.generator.Generate(ctx)
	if err != nil {
		metrics.RecordUpstreamError("baseline")
		return fmt.Errorf("%w: %v", ErrNoBaseline, err)
	}
	if err := s.store.Initialize(ctx, tl); err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}

	s.commands = queue.NewInMemoryQueue[command](
		queue.WithCapacity(s.queueSize),
		queue.WithObserver(metrics.UpdateCommandQueue),
	)
	s.worker = worker.New[command](s.commands, s.process, worker.WithName("hub-worker"), worker.WithLogger(s.logger))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.worker.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "hub started",
		logger.Int("records", len(tl)),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop refuses new commands, lets queued ones finish until ctx ends, then
// closes every connection.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping hub...")

	_ = s.commands.Close()
	select {
	case <-s.worker.Done():
	case <-ctx.Done():
		if err := s.worker.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "hub worker did not stop in time", logger.Error(err))
		}
	}
	s.cancel()
	s.registry.CloseAll(ctx)

	s.started = false
	s.logger.Info(ctx, "hub stopped")
}

// ApplyModifications applies mods in order as one batch and broadcasts the
// resulting snapshot once. An empty batch changes nothing and broadcasts
// nothing. Results are indexed by position in mods.
func (s *Service) ApplyModifications(ctx context.Context, mods []model.Modification) (types.Outcome, error) {
	if len(mods) == 0 {
		return types.Outcome{Results: []model.ApplyResult{}, Version: s.store.Version(ctx)}, nil
	}
	return s.submit(ctx, command{kind: cmdApply, mods: mods})
}

// Reset replaces the forecast with a fresh baseline, clears the log and
// broadcasts. A generator failure leaves the state untouched.
func (s *Service) Reset(ctx context.Context) (types.Outcome, error) {
	return s.submit(ctx, command{kind: cmdReset})
}

// Snapshot returns the current forecast state.
func (s *Service) Snapshot(ctx context.Context) model.Snapshot {
	return s.store.Snapshot(ctx)
}

// HandleJoin registers conn and sends it the current snapshot as
// initial_data. The snapshot is taken under the registry lock, so conn sees
// either the state a concurrent broadcast carries or that broadcast itself.
func (s *Service) HandleJoin(ctx context.Context, conn registry.Conn) error {
	return s.registry.Join(ctx, conn, func(ctx context.Context) ([]byte, error) {
		return types.EncodeSnapshot(types.TypeInitialData, s.store.Snapshot(ctx))
	})
}

// HandleLeave removes conn.
func (s *Service) HandleLeave(ctx context.Context, conn registry.Conn) {
	s.registry.Leave(ctx, conn)
}

// SeenAndRecord reports whether a request id was already handled and
// records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordDuplicateRequest()
	}
	return seen
}

// Unrecord forgets a request id so the request can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// GetStats returns hub statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.store.Snapshot(ctx)
	st := types.Stats{
		Started:        s.started,
		State:          State(s.state.Load()).String(),
		Connections:    s.registry.Len(),
		Version:        snap.Version,
		LogLength:      len(snap.Modifications),
		TimelineLength: len(snap.Forecast),
		QueueCapacity:  s.queueSize,
		DedupeSize:     s.deduper.Size(),
	}
	if s.started {
		st.QueueLength = s.commands.Len()
	}
	return st
}

func (s *Service) submit(ctx context.Context, cmd command) (types.Outcome, error) {
	s.mu.RLock()
	started, commands := s.started, s.commands
	s.mu.RUnlock()
	if !started {
		return types.Outcome{}, ErrNotStarted
	}

	cmd.ctx = ctx
	cmd.reply = make(chan result, 1)
	if !commands.Enqueue(ctx, cmd) {
		metrics.RecordCommandDropped()
		if commands.IsClosed() {
			return types.Outcome{}, ErrNotStarted
		}
		if err := ctx.Err(); err != nil {
			return types.Outcome{}, err
		}
		return types.Outcome{}, ErrBusy
	}

	select {
	case r := <-cmd.reply:
		return r.out, r.err
	case <-ctx.Done():
		return types.Outcome{}, ctx.Err()
	}
}

// process runs on the single hub worker.
func (s *Service) process(ctx context.Context, cmd command) {
	if err := cmd.ctx.Err(); err != nil {
		cmd.reply <- result{err: err}
		return
	}
	start := time.Now()
	s.state.Store(int32(StateApplying))
	defer s.state.Store(int32(StateIdle))

	var out types.Outcome
	switch cmd.kind {
	case cmdApply:
		out.Results = s.applyBatch(ctx, cmd.mods)
	case cmdReset:
		if err := s.reset(ctx); err != nil {
			cmd.reply <- result{err: err}
			return
		}
	}

	snap := s.store.Snapshot(ctx)
	out.Version = snap.Version
	frame, err := types.EncodeSnapshot(types.TypeForecastUpdate, snap)
	if err != nil {
		s.logger.Error(ctx, "failed to encode forecast update", logger.Error(err))
		cmd.reply <- result{err: err}
		return
	}
	res := s.registry.Broadcast(ctx, types.TypeForecastUpdate, frame)
	out.Delivered, out.Failed = res.Delivered, res.Failed

	metrics.RecordCommandLatency(cmd.kind.String(), float64(time.Since(start).Microseconds())/1000.0)
	s.logger.Info(ctx, "forecast updated",
		logger.String("command", cmd.kind.String()),
		logger.Uint64("version", snap.Version),
		logger.Int("delivered", res.Delivered),
		logger.Int("failed", res.Failed),
	)
	cmd.reply <- result{out: out}
}

func (s *Service) applyBatch(ctx context.Context, mods []model.Modification) []model.ApplyResult {
	results := make([]model.ApplyResult, len(mods))
	for i, mod := range mods {
		changed, err := s.store.Apply(ctx, mod)
		results[i] = model.ApplyResult{Index: i, Applied: err == nil, RecordsChanged: changed}
		if err != nil {
			results[i].Reason = modification.ReasonOf(err)
			results[i].Message = err.Error()
			s.logger.Warn(ctx, "modification rejected",
				logger.Int("index", i),
				logger.Error(err),
			)
		}
	}
	return results
}

func (s *Service) reset(ctx context.Context) error {
	tl, err := s.generator.Generate(ctx)
	if err != nil {
		metrics.RecordUpstreamError("baseline")
		s.logger.Error(ctx, "baseline generation failed, keeping current forecast", logger.Error(err))
		return fmt.Errorf("%w: %v", ErrNoBaseline, err)
	}
	if err := s.store.Reset(ctx, tl); err != nil {
		if errors.Is(err, repository.ErrInvalidBaseline) {
			metrics.RecordUpstreamError("baseline")
			return fmt.Errorf("%w: %v", ErrNoBaseline, err)
		}
		return err
	}
	return nil
}
