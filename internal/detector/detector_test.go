package detector_test

import (
	"testing"
	"time"

	"github.com/nomadica/circuit-sync/internal/detector"
	"github.com/nomadica/circuit-sync/internal/model"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func intp(n int) *int         { return &n }
func strp(s string) *string   { return &s }
func centsp(c uint32) *uint32 { return &c }

func snapshot(avail, total int, status string, cents uint32) *model.AvailabilitySnapshot {
	return &model.AvailabilitySnapshot{
		DepartureID:    42,
		AvailableSeats: intp(avail),
		TotalSeats:     intp(total),
		Status:         strp(status),
		PriceCents:     centsp(cents),
		CapturedAt:     testNow.Add(-time.Hour),
	}
}

func kinds(events []model.ChangeEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func assertKinds(t *testing.T, events []model.ChangeEvent, want ...string) {
	t.Helper()
	got := kinds(events)
	if len(got) != len(want) {
		t.Fatalf("got events %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: got %q, want %q (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestFirstSyncEmitsNothing(t *testing.T) {
	next := model.FetchedAvailability{
		AvailableSeats: intp(0),
		TotalSeats:     intp(20),
		Status:         strp(model.DepartureFull),
	}
	if events := detector.Detect(nil, next, testNow); len(events) != 0 {
		t.Fatalf("first sync produced events: %v", kinds(events))
	}
}

func TestAbsentFieldNeverEmits(t *testing.T) {
	prev := snapshot(5, 20, model.DepartureOpen, 120000)
	// Fetch came back with only a status; everything else unknown.
	next := model.FetchedAvailability{Status: strp(model.DepartureOpen)}
	if events := detector.Detect(prev, next, testNow); len(events) != 0 {
		t.Fatalf("absent fields produced events: %v", kinds(events))
	}
}

func TestDecreaseToZeroPairsWithBecameFull(t *testing.T) {
	prev := snapshot(3, 20, model.DepartureOpen, 120000)
	next := model.FetchedAvailability{AvailableSeats: intp(0)}
	events := detector.Detect(prev, next, testNow)
	assertKinds(t, events, model.EventAvailabilityDecreased, model.EventBecameFull)
	if events[0].OldValue != "3" || events[0].NewValue != "0" {
		t.Fatalf("decrease values: old=%q new=%q", events[0].OldValue, events[0].NewValue)
	}
}

func TestIncreaseFromZeroPairsWithBecameAvailable(t *testing.T) {
	prev := snapshot(0, 20, model.DepartureFull, 120000)
	next := model.FetchedAvailability{AvailableSeats: intp(2)}
	events := detector.Detect(prev, next, testNow)
	assertKinds(t, events, model.EventAvailabilityIncreased, model.EventBecameAvailable)
}

func TestUnchangedValuesEmitNothing(t *testing.T) {
	prev := snapshot(5, 20, model.DepartureOpen, 120000)
	next := model.FetchedAvailability{
		AvailableSeats: intp(5),
		TotalSeats:     intp(20),
		Status:         strp(model.DepartureOpen),
		PriceCents:     centsp(120000),
	}
	if events := detector.Detect(prev, next, testNow); len(events) != 0 {
		t.Fatalf("unchanged fetch produced events: %v", kinds(events))
	}
}

func TestEventOrdering(t *testing.T) {
	prev := snapshot(5, 20, model.DepartureOpen, 120000)
	next := model.FetchedAvailability{
		AvailableSeats: intp(2),
		TotalSeats:     intp(22),
		Status:         strp(model.DepartureClosed),
		PriceCents:     centsp(130000),
	}
	events := detector.Detect(prev, next, testNow)
	assertKinds(t, events,
		model.EventAvailabilityDecreased,
		model.EventCapacityChanged,
		model.EventStatusChanged,
		model.EventPriceChanged,
	)
	if events[3].OldValue != "1200.00" || events[3].NewValue != "1300.00" {
		t.Fatalf("price values: old=%q new=%q", events[3].OldValue, events[3].NewValue)
	}
}

func TestMergeCarriesForwardAbsentFields(t *testing.T) {
	prev := snapshot(5, 20, model.DepartureOpen, 120000)
	next := model.FetchedAvailability{AvailableSeats: intp(4)}
	merged := detector.Merge(prev, next, 42, testNow)

	if merged.AvailableSeats == nil || *merged.AvailableSeats != 4 {
		t.Fatalf("available not taken from fetch: %v", merged.AvailableSeats)
	}
	if merged.TotalSeats == nil || *merged.TotalSeats != 20 {
		t.Fatalf("total not carried forward: %v", merged.TotalSeats)
	}
	if merged.Status == nil || *merged.Status != model.DepartureOpen {
		t.Fatalf("status not carried forward: %v", merged.Status)
	}
	if merged.PriceCents == nil || *merged.PriceCents != 120000 {
		t.Fatalf("price not carried forward: %v", merged.PriceCents)
	}
	if !merged.CapturedAt.Equal(testNow) {
		t.Fatalf("captured_at not refreshed: %v", merged.CapturedAt)
	}
}

func TestMergeWithoutPrevious(t *testing.T) {
	next := model.FetchedAvailability{AvailableSeats: intp(7)}
	merged := detector.Merge(nil, next, 42, testNow)
	if merged.AvailableSeats == nil || *merged.AvailableSeats != 7 {
		t.Fatalf("available: %v", merged.AvailableSeats)
	}
	if merged.TotalSeats != nil || merged.Status != nil || merged.PriceCents != nil {
		t.Fatalf("unknown fields should stay nil: %+v", merged)
	}
}

// Three consecutive syncs where the middle one loses the seats field:
// the gap must neither emit events nor reset the stored count, and the
// third sync compares against the value from the first.
func TestScrapingGapScenario(t *testing.T) {
	next1 := model.FetchedAvailability{AvailableSeats: intp(5), TotalSeats: intp(20)}
	snap1 := detector.Merge(nil, next1, 42, testNow)
	if events := detector.Detect(nil, next1, testNow); len(events) != 0 {
		t.Fatalf("baseline sync emitted: %v", kinds(events))
	}

	next2 := model.FetchedAvailability{Status: strp(model.DepartureOpen)}
	if events := detector.Detect(snap1, next2, testNow.Add(time.Hour)); len(events) != 0 {
		t.Fatalf("gap sync emitted: %v", kinds(events))
	}
	snap2 := detector.Merge(snap1, next2, 42, testNow.Add(time.Hour))
	if snap2.AvailableSeats == nil || *snap2.AvailableSeats != 5 {
		t.Fatalf("gap sync lost seat count: %v", snap2.AvailableSeats)
	}

	next3 := model.FetchedAvailability{AvailableSeats: intp(0)}
	events := detector.Detect(snap2, next3, testNow.Add(2*time.Hour))
	assertKinds(t, events, model.EventAvailabilityDecreased, model.EventBecameFull)
	if events[0].OldValue != "5" {
		t.Fatalf("comparison base: got old=%q, want 5", events[0].OldValue)
	}
}
