// Package sweeper runs the short-TTL background worker: on a fixed
// cadence it asks every short_ttl object's storage for expired
// instance ids and submits each to the deletion engine.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/mcmcgrath13/delf/internal/metrics"
	"github.com/mcmcgrath13/delf/internal/schema"
	"github.com/mcmcgrath13/delf/internal/telemetry"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultCadence = 30 * time.Second

// engine is the subset of deletion.Engine the sweeper calls, so tests
// can substitute a fake without constructing a real graph.
type engine interface {
	DeleteObject(ctx context.Context, name, id string) error
}

// Option configures a Sweeper at construction time.
type Option func(*Sweeper)

// WithCadence overrides the default 30 second tick interval.
func WithCadence(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.cadence = d
		}
	}
}

// cronParser accepts both standard five-field expressions and
// descriptors ("@every 30s", "@hourly"), matching what operators
// expect from a cron-style flag.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// WithCronSchedule parses a cron expression or descriptor and derives
// the tick interval from it (the gap to its next firing from now).
// Invalid expressions are ignored and the previous cadence is kept.
func WithCronSchedule(expr string) Option {
	return func(s *Sweeper) {
		schedule, err := cronParser.Parse(expr)
		if err != nil {
			return
		}
		now := time.Now()
		next := schedule.Next(now)
		if d := next.Sub(now); d > 0 {
			s.cadence = d
		}
	}
}

// Sweeper is a background worker that periodically evaluates every
// short_ttl object in a graph and asks the engine to delete expired
// instances.
type Sweeper struct {
	graph   *schema.Graph
	engine  engine
	logger  *zap.Logger
	cadence time.Duration

	mu     sync.Mutex
	ticker *time.Ticker
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Sweeper bound to graph and engine. A nil logger is
// replaced with a no-op logger.
func New(graph *schema.Graph, eng engine, logger *zap.Logger, opts ...Option) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{
		graph:   graph,
		engine:  eng,
		logger:  logger,
		cadence: defaultCadence,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Run starts the sweeper loop and blocks until ctx is canceled or Stop
// is called. It is intended to be run in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.ticker = time.NewTicker(s.cadence)
	ticker := s.ticker
	s.mu.Unlock()

	s.wg.Add(1)
	defer s.wg.Done()

	s.tick(loopCtx)
	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			s.tick(loopCtx)
		}
	}
}

// Stop halts the sweeper loop and waits for the in-flight tick, if any,
// to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	s.ticker = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// tick is check_short_ttl (spec.md §6): one full sweep pass over every
// short_ttl object.
func (s *Sweeper) tick(ctx context.Context) {
	ctx, span := telemetry.StartSweepSpan(ctx)
	defer span.End()

	start := time.Now()
	for _, name := range s.graph.Objects() {
		obj := s.graph.Object(name)
		if obj.Deletion.Kind != schema.DeletionShortTTL {
			continue
		}
		s.sweepObject(ctx, obj)
	}
	metrics.RecordSweep(time.Since(start))
}

func (s *Sweeper) sweepObject(ctx context.Context, obj *schema.Object) {
	backend := s.graph.Storage(obj.Storage)
	if backend == nil {
		s.logger.Warn("short_ttl object has no bound storage", zap.String("object", obj.Name))
		return
	}

	ids, err := backend.GetObjectIDsByTime(ctx, obj.Name, obj.TimeField, obj.IDField, obj.IDType, time.Now())
	if err != nil {
		s.logger.Warn("sweep: get_object_ids_by_time failed", zap.String("object", obj.Name), zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}
	metrics.RecordSweepExpired(obj.Name, len(ids))

	for _, id := range ids {
		if err := s.engine.DeleteObject(ctx, obj.Name, id); err != nil {
			// Individual failures are logged but never halt the sweep.
			s.logger.Warn("sweep: delete_object failed", zap.String("object", obj.Name), zap.String("id", id), zap.Error(err))
		}
	}
}
