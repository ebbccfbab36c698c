// Package syncer drives sync cycles: fetch, extract, detect, persist,
// dispatch. The orchestrator runs one cycle for one source; the
// scheduler decides when cycles happen.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/nomadica/circuit-sync/internal/detector"
	"github.com/nomadica/circuit-sync/internal/extractor"
	"github.com/nomadica/circuit-sync/internal/fetcher"
	"github.com/nomadica/circuit-sync/internal/model"
	"github.com/nomadica/circuit-sync/internal/queue"
)

// ValidationError indicates that extracted values failed sanity checks.
// The sync fails whole: values are never silently clamped into range.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validate: " + e.Msg }

// ErrManualSource is returned when a sync is requested for a manual
// source. Manual sources have no fetchable endpoint: their values are
// entered by an operator and applied to the departure directly.
var ErrManualSource = errors.New("manual source: availability is entered by an operator, not fetched")

// Fetcher retrieves raw content for a source.
type Fetcher interface {
	Fetch(ctx context.Context, src *model.ExternalSource) (*fetcher.RawContent, error)
}

// SourceStore records sync outcomes on sources.
type SourceStore interface {
	RecordOutcome(ctx context.Context, id uint64, status string, errMsg string, at time.Time) error
}

// SnapshotStore loads and replaces availability snapshots.
type SnapshotStore interface {
	Load(ctx context.Context, departureID uint64) (*model.AvailabilitySnapshot, error)
	Save(ctx context.Context, s *model.AvailabilitySnapshot) error
}

// DepartureStore applies synced seat counts and internal bookings.
type DepartureStore interface {
	ApplySnapshot(ctx context.Context, id uint64, totalSeats, bookedSeats *int, status *string) error
	RecordBooking(ctx context.Context, id uint64, seatsDelta int) (*model.Departure, error)
}

// EventDispatcher fans detected events out to subscribers.
type EventDispatcher interface {
	Dispatch(ctx context.Context, circuitID uint64, events []model.ChangeEvent) ([]queue.NotificationIntent, error)
}

// SyncOutcome is the result of one sync run, recorded on the source and
// returned to the caller of a manual trigger.
type SyncOutcome struct {
	SourceID uint64    `json:"source_id"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Events   int       `json:"events"`
	Intents  int       `json:"intents"`
	SyncedAt time.Time `json:"synced_at"`
}

// Orchestrator executes the per-source sync state machine. Runs for the
// same source are serialized through a per-source mutex so two
// concurrent cycles can never race to write two different snapshots or
// double-emit events for one transition; the scheduler's in-flight
// tracking covers the scheduled path, this lock also covers manual
// triggers arriving mid-run.
type Orchestrator struct {
	fetch      Fetcher
	sources    SourceStore
	snapshots  SnapshotStore
	departures DepartureStore
	dispatcher EventDispatcher

	// Now is injectable for tests.
	Now func() time.Time

	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

// NewOrchestrator wires an orchestrator.
func NewOrchestrator(f Fetcher, sources SourceStore, snapshots SnapshotStore, departures DepartureStore, dispatcher EventDispatcher) *Orchestrator {
	return &Orchestrator{
		fetch:      f,
		sources:    sources,
		snapshots:  snapshots,
		departures: departures,
		dispatcher: dispatcher,
		Now:        time.Now,
		locks:      make(map[uint64]*sync.Mutex),
	}
}

func (o *Orchestrator) lockFor(sourceID uint64) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[sourceID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[sourceID] = l
	}
	return l
}

// SyncSource runs one full cycle for a source and records the outcome.
// Errors terminate the run early, leave the stored snapshot (the
// detection baseline) untouched, and produce no events; the next
// scheduled tick is the retry. The outcome is returned so a manual
// trigger can report it to the operator synchronously.
func (o *Orchestrator) SyncSource(ctx context.Context, src *model.ExternalSource) SyncOutcome {
	l := o.lockFor(src.ID)
	l.Lock()
	defer l.Unlock()

	now := o.Now()
	outcome := SyncOutcome{SourceID: src.ID, SyncedAt: now}

	// Manual sources never enter the fetch pipeline, whatever frequency
	// they carry. No outcome is recorded either: the failure counters
	// track the remote endpoint, and a manual source has none.
	if src.Kind == model.SourceManual {
		outcome.Status = model.SyncError
		outcome.Error = ErrManualSource.Error()
		return outcome
	}

	events, intents, err := o.run(ctx, src, now)
	if err != nil {
		outcome.Status = model.SyncError
		outcome.Error = err.Error()
		if recErr := o.sources.RecordOutcome(ctx, src.ID, model.SyncError, err.Error(), now); recErr != nil {
			log.Printf("sync: record outcome for source %d: %v", src.ID, recErr)
		}
		log.Printf("sync: source %d failed: %v", src.ID, err)
		return outcome
	}

	outcome.Status = model.SyncSuccess
	outcome.Events = events
	outcome.Intents = intents
	if recErr := o.sources.RecordOutcome(ctx, src.ID, model.SyncSuccess, "", now); recErr != nil {
		log.Printf("sync: record outcome for source %d: %v", src.ID, recErr)
	}
	return outcome
}

func (o *Orchestrator) run(ctx context.Context, src *model.ExternalSource, now time.Time) (events, intents int, err error) {
	raw, err := o.fetch.Fetch(ctx, src)
	if err != nil {
		return 0, 0, err
	}

	fetched, err := extractor.Extract(raw.Body, src)
	if err != nil {
		return 0, 0, err
	}

	prev, err := o.snapshots.Load(ctx, src.DepartureID)
	if err != nil {
		return 0, 0, fmt.Errorf("load snapshot: %w", err)
	}

	detected := detector.Detect(prev, fetched, now)
	merged := detector.Merge(prev, fetched, src.DepartureID, now)

	// Sanity checks run on the merged view so a fetched count is also
	// checked against a carried-forward capacity.
	if merged.AvailableSeats != nil && merged.TotalSeats != nil && *merged.AvailableSeats > *merged.TotalSeats {
		return 0, 0, &ValidationError{Msg: fmt.Sprintf("available seats %d exceed total %d", *merged.AvailableSeats, *merged.TotalSeats)}
	}
	if merged.TotalSeats != nil && *merged.TotalSeats < 1 {
		return 0, 0, &ValidationError{Msg: fmt.Sprintf("total seats %d below 1", *merged.TotalSeats)}
	}

	// Apply the fields actually present in the fetch to the departure.
	// Booked seats are derived from the stored capacity when available
	// seats are known; with no known capacity there is nothing to derive.
	var booked *int
	if fetched.AvailableSeats != nil && merged.TotalSeats != nil {
		b := *merged.TotalSeats - *fetched.AvailableSeats
		booked = &b
	}
	if err := o.departures.ApplySnapshot(ctx, src.DepartureID, fetched.TotalSeats, booked, fetched.Status); err != nil {
		return 0, 0, fmt.Errorf("apply to departure: %w", err)
	}

	// The snapshot becomes the new baseline only after the departure
	// accepted the write. A run that errors out here leaves the old
	// baseline in place, so the detected changes surface again on the
	// next cycle instead of being swallowed.
	if err := o.snapshots.Save(ctx, merged); err != nil {
		return 0, 0, fmt.Errorf("save snapshot: %w", err)
	}

	sent, err := o.dispatcher.Dispatch(ctx, src.CircuitID, detected)
	if err != nil {
		// The sync itself succeeded and the snapshot is already the new
		// baseline; a dispatch failure is logged, not surfaced as a
		// sync error, and the dedup store keeps duplicates at bay if
		// some intents did go out.
		log.Printf("sync: dispatch for source %d: %v", src.ID, err)
	}
	return len(detected), len(sent), nil
}

// RecordInternalBooking applies an internal reservation to a departure
// and feeds a new_booking event straight into the dispatcher, bypassing
// fetch/extract/detect entirely.
func (o *Orchestrator) RecordInternalBooking(ctx context.Context, departureID uint64, seatsDelta int) (*model.Departure, error) {
	after, err := o.departures.RecordBooking(ctx, departureID, seatsDelta)
	if err != nil {
		return nil, err
	}

	// The old value is derived from the row the guarded UPDATE produced,
	// not from a separate read before it: a concurrent booking between
	// the two would stamp a stale count on the event.
	ev := model.ChangeEvent{
		Kind:        model.EventNewBooking,
		DepartureID: departureID,
		OldValue:    strconv.Itoa(after.BookedSeats - seatsDelta),
		NewValue:    strconv.Itoa(after.BookedSeats),
		At:          o.Now(),
	}
	if _, err := o.dispatcher.Dispatch(ctx, after.CircuitID, []model.ChangeEvent{ev}); err != nil {
		log.Printf("sync: dispatch booking for departure %d: %v", departureID, err)
	}
	return after, nil
}
