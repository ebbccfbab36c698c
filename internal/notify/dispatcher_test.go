package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nomadica/circuit-sync/internal/config"
	"github.com/nomadica/circuit-sync/internal/model"
	"github.com/nomadica/circuit-sync/internal/queue"
)

type fakeSubs struct {
	subs []model.WatchlistSubscription
	err  error
}

func (f *fakeSubs) ListByCircuit(context.Context, uint64) ([]model.WatchlistSubscription, error) {
	return f.subs, f.err
}

type fakeDeliverer struct {
	delivered []queue.NotificationIntent
	failNext  int
}

func (f *fakeDeliverer) Deliver(_ context.Context, intent queue.NotificationIntent) error {
	if f.failNext > 0 {
		f.failNext--
		return errors.New("broker down")
	}
	f.delivered = append(f.delivered, intent)
	return nil
}

func newTestDispatcher(subs []model.WatchlistSubscription) (*Dispatcher, *fakeDeliverer) {
	del := &fakeDeliverer{}
	d := NewDispatcher(&fakeSubs{subs: subs}, nil, del, config.DedupConfig{
		Window: 6 * time.Hour,
		Prefix: "dedup",
	})
	d.Now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	return d, del
}

func availabilityEvent(newValue string) model.ChangeEvent {
	return model.ChangeEvent{
		Kind:        model.EventAvailabilityDecreased,
		DepartureID: 7,
		OldValue:    "5",
		NewValue:    newValue,
	}
}

func TestDispatchGatesOnPreferences(t *testing.T) {
	subs := []model.WatchlistSubscription{
		{AgencyID: 1, CircuitID: 3, NotifyOnAvailability: true},
		{AgencyID: 2, CircuitID: 3, NotifyOnPriceChange: true},
		{AgencyID: 3, CircuitID: 3, NotifyOnBooking: true},
	}
	d, del := newTestDispatcher(subs)

	events := []model.ChangeEvent{
		availabilityEvent("3"),
		{Kind: model.EventPriceChanged, DepartureID: 7, OldValue: "1200.00", NewValue: "1300.00"},
	}
	sent, err := d.Dispatch(context.Background(), 3, events)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(sent) != 2 || len(del.delivered) != 2 {
		t.Fatalf("sent %d, delivered %d, want 2 each", len(sent), len(del.delivered))
	}
	if sent[0].AgencyID != 1 || sent[0].EventKind != model.EventAvailabilityDecreased {
		t.Fatalf("first intent wrong: %+v", sent[0])
	}
	if sent[1].AgencyID != 2 || sent[1].EventKind != model.EventPriceChanged {
		t.Fatalf("second intent wrong: %+v", sent[1])
	}
}

func TestStatusAndCapacityRideAvailabilityFlag(t *testing.T) {
	subs := []model.WatchlistSubscription{
		{AgencyID: 1, CircuitID: 3, NotifyOnAvailability: true},
		{AgencyID: 2, CircuitID: 3, NotifyOnPriceChange: true},
	}
	d, _ := newTestDispatcher(subs)

	events := []model.ChangeEvent{
		{Kind: model.EventStatusChanged, DepartureID: 7, OldValue: model.DepartureOpen, NewValue: model.DepartureCancelled},
		{Kind: model.EventCapacityChanged, DepartureID: 7, OldValue: "20", NewValue: "24"},
	}
	sent, err := d.Dispatch(context.Background(), 3, events)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("sent %d, want 2", len(sent))
	}
	for _, in := range sent {
		if in.AgencyID != 1 {
			t.Fatalf("intent for wrong agency: %+v", in)
		}
	}
}

func TestRepeatedObservationIsSuppressed(t *testing.T) {
	subs := []model.WatchlistSubscription{{AgencyID: 1, CircuitID: 3, NotifyOnAvailability: true}}
	d, del := newTestDispatcher(subs)
	ctx := context.Background()

	if _, err := d.Dispatch(ctx, 3, []model.ChangeEvent{availabilityEvent("3")}); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	sent, err := d.Dispatch(ctx, 3, []model.ChangeEvent{availabilityEvent("3")})
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if len(sent) != 0 || len(del.delivered) != 1 {
		t.Fatalf("duplicate not suppressed: sent=%d delivered=%d", len(sent), len(del.delivered))
	}
}

func TestDifferentValueRearms(t *testing.T) {
	subs := []model.WatchlistSubscription{{AgencyID: 1, CircuitID: 3, NotifyOnAvailability: true}}
	d, del := newTestDispatcher(subs)
	ctx := context.Background()

	d.Dispatch(ctx, 3, []model.ChangeEvent{availabilityEvent("3")})
	d.Dispatch(ctx, 3, []model.ChangeEvent{availabilityEvent("2")})
	if len(del.delivered) != 2 {
		t.Fatalf("distinct values should both deliver, got %d", len(del.delivered))
	}
}

func TestWindowExpiryRearms(t *testing.T) {
	subs := []model.WatchlistSubscription{{AgencyID: 1, CircuitID: 3, NotifyOnAvailability: true}}
	del := &fakeDeliverer{}
	mem := NewMemoryDedup()
	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	mem.now = func() time.Time { return base }

	d := NewDispatcher(&fakeSubs{subs: subs}, mem, del, config.DedupConfig{Window: time.Hour, Prefix: "dedup"})
	ctx := context.Background()

	d.Dispatch(ctx, 3, []model.ChangeEvent{availabilityEvent("3")})
	mem.now = func() time.Time { return base.Add(2 * time.Hour) }
	d.Dispatch(ctx, 3, []model.ChangeEvent{availabilityEvent("3")})
	if len(del.delivered) != 2 {
		t.Fatalf("expired window should re-alert, got %d deliveries", len(del.delivered))
	}
}

func TestFailedDeliveryReleasesKey(t *testing.T) {
	subs := []model.WatchlistSubscription{{AgencyID: 1, CircuitID: 3, NotifyOnAvailability: true}}
	d, del := newTestDispatcher(subs)
	del.failNext = 1
	ctx := context.Background()

	sent, err := d.Dispatch(ctx, 3, []model.ChangeEvent{availabilityEvent("3")})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(sent) != 0 {
		t.Fatalf("failed delivery reported as sent: %v", sent)
	}

	// Same observation on the next cycle must go through.
	sent, err = d.Dispatch(ctx, 3, []model.ChangeEvent{availabilityEvent("3")})
	if err != nil {
		t.Fatalf("retry dispatch: %v", err)
	}
	if len(sent) != 1 || len(del.delivered) != 1 {
		t.Fatalf("release did not re-arm: sent=%d delivered=%d", len(sent), len(del.delivered))
	}
}

func TestDedupKeyIsStablePerObservation(t *testing.T) {
	d, _ := newTestDispatcher(nil)
	a := d.DedupKey(1, 7, model.EventAvailabilityDecreased, "3")
	b := d.DedupKey(1, 7, model.EventAvailabilityDecreased, "3")
	c := d.DedupKey(1, 7, model.EventAvailabilityDecreased, "2")
	if a != b {
		t.Fatalf("same observation, different keys: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("different values share a key: %s", a)
	}
}

func TestNoSubscribersNoDelivery(t *testing.T) {
	d, del := newTestDispatcher(nil)
	sent, err := d.Dispatch(context.Background(), 3, []model.ChangeEvent{availabilityEvent("3")})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(sent) != 0 || len(del.delivered) != 0 {
		t.Fatalf("delivery without subscribers: %v", sent)
	}
}
