package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nomadica/circuit-sync/internal/config"
	"github.com/nomadica/circuit-sync/internal/model"
)

type fakeLister struct {
	srcs []model.ExternalSource
}

func (f *fakeLister) LoadActive(context.Context) ([]model.ExternalSource, error) {
	return f.srcs, nil
}

type countingRunner struct {
	mu    sync.Mutex
	runs  map[uint64]int
	block chan struct{}
}

func newCountingRunner() *countingRunner {
	return &countingRunner{runs: make(map[uint64]int)}
}

func (r *countingRunner) SyncSource(_ context.Context, src *model.ExternalSource) SyncOutcome {
	r.mu.Lock()
	r.runs[src.ID]++
	r.mu.Unlock()
	if r.block != nil {
		<-r.block
	}
	return SyncOutcome{SourceID: src.ID, Status: model.SyncSuccess}
}

func (r *countingRunner) count(id uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[id]
}

func newTestScheduler(lister *fakeLister, runner Runner) *Scheduler {
	s := NewScheduler(lister, runner, config.SchedulerConfig{
		PoolSize: 2,
		Tick:     time.Minute,
		Jitter:   time.Minute,
	})
	s.now = func() time.Time { return syncNow }
	s.jitter = func() time.Duration { return 0 }
	return s
}

func hourlySource(id uint64, lastSync *time.Time) model.ExternalSource {
	return model.ExternalSource{
		ID:          id,
		CircuitID:   3,
		DepartureID: 7,
		Kind:        model.SourceAPI,
		Frequency:   model.FreqHourly,
		LastSyncAt:  lastSync,
	}
}

func TestDuePerFrequency(t *testing.T) {
	s := newTestScheduler(&fakeLister{}, newCountingRunner())

	cases := []struct {
		name    string
		freq    string
		elapsed time.Duration
		want    bool
	}{
		{"hourly elapsed", model.FreqHourly, 61 * time.Minute, true},
		{"hourly not yet", model.FreqHourly, 30 * time.Minute, false},
		{"daily elapsed", model.FreqDaily, 25 * time.Hour, true},
		{"daily not yet", model.FreqDaily, 23 * time.Hour, false},
		{"weekly elapsed", model.FreqWeekly, 8 * 24 * time.Hour, true},
		{"weekly not yet", model.FreqWeekly, 6 * 24 * time.Hour, false},
		{"manual never", model.FreqManual, 365 * 24 * time.Hour, false},
	}
	for _, tc := range cases {
		last := syncNow.Add(-tc.elapsed)
		src := model.ExternalSource{ID: 1, Frequency: tc.freq, LastSyncAt: &last}
		if got := s.due(src, syncNow); got != tc.want {
			t.Errorf("%s: due=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNeverSyncedIsDueImmediately(t *testing.T) {
	s := newTestScheduler(&fakeLister{}, newCountingRunner())
	if !s.due(hourlySource(1, nil), syncNow) {
		t.Fatal("source without a last sync should be due")
	}
}

func TestJitterDelaysDue(t *testing.T) {
	s := newTestScheduler(&fakeLister{}, newCountingRunner())
	s.jitter = func() time.Duration { return 10 * time.Minute }
	last := syncNow.Add(-65 * time.Minute)
	if s.due(hourlySource(1, &last), syncNow) {
		t.Fatal("due inside the jitter slice")
	}
	last = syncNow.Add(-75 * time.Minute)
	if !s.due(hourlySource(1, &last), syncNow) {
		t.Fatal("not due past interval plus jitter")
	}
}

func TestTickRunsDueSources(t *testing.T) {
	last := syncNow.Add(-2 * time.Hour)
	fresh := syncNow.Add(-time.Minute)
	lister := &fakeLister{srcs: []model.ExternalSource{
		hourlySource(1, &last),
		hourlySource(2, &fresh),
		hourlySource(3, nil),
	}}
	runner := newCountingRunner()
	s := newTestScheduler(lister, runner)

	s.tick(context.Background())
	s.wg.Wait()

	if runner.count(1) != 1 || runner.count(3) != 1 {
		t.Fatalf("due sources not run: %v", runner.runs)
	}
	if runner.count(2) != 0 {
		t.Fatalf("fresh source run early: %v", runner.runs)
	}
}

func TestInFlightSourceIsSkippedNotQueued(t *testing.T) {
	lister := &fakeLister{srcs: []model.ExternalSource{hourlySource(1, nil)}}
	runner := newCountingRunner()
	runner.block = make(chan struct{})
	s := newTestScheduler(lister, runner)

	ctx := context.Background()
	s.tick(ctx)

	// Wait for the run to start, then tick twice more while it hangs.
	for i := 0; i < 100 && runner.count(1) == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	s.tick(ctx)
	s.tick(ctx)

	close(runner.block)
	s.wg.Wait()

	if got := runner.count(1); got != 1 {
		t.Fatalf("in-flight source ran %d times, want 1", got)
	}
}
