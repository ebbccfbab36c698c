// Package notify maps change events onto the subscribers that asked for
// them. The dispatcher owns preference gating and the dedup suppression
// window; it hands surviving intents to the delivery collaborator and
// never formats or sends messages itself.
package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/nomadica/circuit-sync/internal/config"
	"github.com/nomadica/circuit-sync/internal/model"
	"github.com/nomadica/circuit-sync/internal/queue"
)

// SubscriptionSource is the read-only view of which agencies watch a
// circuit. The watchlist repository implements it; during one dispatch
// cycle the view is not re-read, so concurrent subscription edits take
// effect from the next cycle only.
type SubscriptionSource interface {
	ListByCircuit(ctx context.Context, circuitID uint64) ([]model.WatchlistSubscription, error)
}

// Deliverer is the external delivery collaborator. The dispatcher does
// not retry failed deliveries; it releases the dedup key instead so the
// next detection of the same value can try again, keeping retry policy
// with the collaborator.
type Deliverer interface {
	Deliver(ctx context.Context, intent queue.NotificationIntent) error
}

// Dispatcher fans change events out to eligible subscribers.
type Dispatcher struct {
	subs    SubscriptionSource
	dedup   DedupStore
	deliver Deliverer
	window  time.Duration
	prefix  string

	// Now is injectable for tests.
	Now func() time.Time
}

// NewDispatcher wires a dispatcher. A nil dedup store is replaced with
// the in-process fallback.
func NewDispatcher(subs SubscriptionSource, dedup DedupStore, deliver Deliverer, cfg config.DedupConfig) *Dispatcher {
	if dedup == nil {
		dedup = NewMemoryDedup()
	}
	return &Dispatcher{
		subs:    subs,
		dedup:   dedup,
		deliver: deliver,
		window:  cfg.Window,
		prefix:  cfg.Prefix,
		Now:     time.Now,
	}
}

// eligible reports whether a subscription wants to hear about an event.
// All availability-shaped events, including capacity changes and status
// transitions (into or out of cancelled like any other), ride the
// availability flag; price and booking events have their own flags.
func eligible(sub model.WatchlistSubscription, ev model.ChangeEvent) bool {
	switch ev.Kind {
	case model.EventAvailabilityDecreased, model.EventAvailabilityIncreased,
		model.EventBecameFull, model.EventBecameAvailable,
		model.EventCapacityChanged, model.EventStatusChanged:
		return sub.NotifyOnAvailability
	case model.EventPriceChanged:
		return sub.NotifyOnPriceChange
	case model.EventNewBooking:
		return sub.NotifyOnBooking
	}
	return false
}

// DedupKey is the identity used to suppress repeated notifications for
// an unchanged observation: the same agency is not re-alerted for
// "seats dropped to 3" when two sync cycles in a row observe the same
// value.
func (d *Dispatcher) DedupKey(agencyID, departureID uint64, kind, newValue string) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%d|%d|%s|%s", agencyID, departureID, kind, newValue)))
	return d.prefix + ":" + hex.EncodeToString(sum[:])
}

// Dispatch produces at most one notification intent per (subscriber,
// event) pair for the given events, all belonging to one circuit's
// departure, and hands each to the delivery collaborator. It returns
// the intents actually handed off.
func (d *Dispatcher) Dispatch(ctx context.Context, circuitID uint64, events []model.ChangeEvent) ([]queue.NotificationIntent, error) {
	if len(events) == 0 {
		return nil, nil
	}
	subs, err := d.subs.ListByCircuit(ctx, circuitID)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions for circuit %d: %w", circuitID, err)
	}

	var sent []queue.NotificationIntent
	for _, ev := range events {
		for _, sub := range subs {
			if !eligible(sub, ev) {
				continue
			}
			key := d.DedupKey(sub.AgencyID, ev.DepartureID, ev.Kind, ev.NewValue)
			armed, err := d.dedup.Arm(ctx, key, d.window)
			if err != nil {
				// A broken dedup store must not eat alerts; risk a
				// duplicate over a missed notification.
				log.Printf("dispatch: dedup store error for %s: %v", key, err)
				armed = true
			}
			if !armed {
				continue
			}

			intent := queue.NotificationIntent{
				AgencyID:    sub.AgencyID,
				CircuitID:   circuitID,
				DepartureID: ev.DepartureID,
				EventKind:   ev.Kind,
				OldValue:    ev.OldValue,
				NewValue:    ev.NewValue,
				DedupKey:    key,
				CreatedAt:   d.Now().UTC().Format(time.RFC3339),
			}
			if err := d.deliver.Deliver(ctx, intent); err != nil {
				// The suppression window must not stay armed for a
				// notification nobody received. Releasing the key means
				// the next identical detection re-sends: the collaborator
				// only retries intents it actually accepted, so a publish
				// that never reached the broker has nothing downstream to
				// retry it.
				log.Printf("dispatch: delivery failed for %s: %v", key, err)
				if relErr := d.dedup.Release(ctx, key); relErr != nil {
					log.Printf("dispatch: release %s: %v", key, relErr)
				}
				continue
			}
			sent = append(sent, intent)
		}
	}
	return sent, nil
}
