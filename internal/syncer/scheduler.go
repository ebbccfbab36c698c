package syncer

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/nomadica/circuit-sync/internal/config"
	"github.com/nomadica/circuit-sync/internal/model"
)

// SourceLister loads the sources the scheduler may trigger.
type SourceLister interface {
	LoadActive(ctx context.Context) ([]model.ExternalSource, error)
}

// Runner executes one sync cycle. Implemented by the Orchestrator.
type Runner interface {
	SyncSource(ctx context.Context, src *model.ExternalSource) SyncOutcome
}

// Scheduler triggers orchestrator runs per source according to its
// configured frequency. Total concurrency is bounded by a fixed worker
// pool; sources beyond the pool wait for a slot rather than being
// skipped. A source whose previous run is still in flight when its next
// trigger arrives is skipped for that tick, never queued twice.
type Scheduler struct {
	sources SourceLister
	runner  Runner
	cfg     config.SchedulerConfig

	// now and jitter are injectable for tests.
	now    func() time.Time
	jitter func() time.Duration

	sem chan struct{}
	wg  sync.WaitGroup

	mu       sync.Mutex
	inFlight map[uint64]bool
}

// NewScheduler wires a scheduler.
func NewScheduler(sources SourceLister, runner Runner, cfg config.SchedulerConfig) *Scheduler {
	s := &Scheduler{
		sources:  sources,
		runner:   runner,
		cfg:      cfg,
		now:      time.Now,
		sem:      make(chan struct{}, cfg.PoolSize),
		inFlight: make(map[uint64]bool),
	}
	s.jitter = func() time.Duration {
		if cfg.Jitter <= 0 {
			return 0
		}
		return time.Duration(rand.Int63n(int64(cfg.Jitter)))
	}
	return s
}

// Run loops until ctx is cancelled. On shutdown no new runs are started
// and in-flight runs are allowed to finish before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.cfg.Tick)
	defer t.Stop()

	// kick immediately
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	srcs, err := s.sources.LoadActive(ctx)
	if err != nil {
		log.Printf("scheduler: load active sources: %v", err)
		return
	}

	now := s.now()
	for _, src := range srcs {
		if !s.due(src, now) {
			continue
		}
		if !s.claim(src.ID) {
			continue
		}

		src := src
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release(src.ID)

			s.sem <- struct{}{}
			defer func() { <-s.sem }()

			// A run that won a worker slot finishes even when the
			// scheduler is shutting down; persistence is never cut off
			// mid-write.
			s.runner.SyncSource(context.WithoutCancel(ctx), &src)
		}()
	}
}

// due reports whether a source's interval (plus a random jitter slice,
// so sources created together do not sync in lockstep forever) has
// elapsed since its last sync. Manual sources are never due.
func (s *Scheduler) due(src model.ExternalSource, now time.Time) bool {
	interval := src.Interval()
	if interval == 0 {
		return false
	}
	if src.LastSyncAt == nil {
		return true
	}
	return now.Sub(*src.LastSyncAt) >= interval+s.jitter()
}

// claim marks a source in flight; it returns false when a previous run
// has not finished yet.
func (s *Scheduler) claim(sourceID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[sourceID] {
		return false
	}
	s.inFlight[sourceID] = true
	return true
}

func (s *Scheduler) release(sourceID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sourceID)
}
