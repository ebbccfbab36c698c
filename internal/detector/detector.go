// Package detector compares a newly fetched availability against the
// last stored snapshot and produces the discrete change events worth
// telling subscribers about. Detection and merging are pure transforms:
// no I/O, no clock reads beyond the timestamp passed in.
package detector

import (
	"strconv"
	"time"

	"github.com/nomadica/circuit-sync/internal/model"
)

// Detect returns the ordered list of change events implied by next
// relative to prev.
//
// Two asymmetries carry the whole design:
//   - a first sync (prev == nil) only establishes the baseline and never
//     emits events, regardless of the fetched values;
//   - a field absent from next is unknown, not changed. It never
//     manufactures an event, so a transient scraping gap cannot produce
//     a false "seats appeared" alert when the field comes back.
func Detect(prev *model.AvailabilitySnapshot, next model.FetchedAvailability, now time.Time) []model.ChangeEvent {
	if prev == nil {
		return nil
	}

	var events []model.ChangeEvent
	emit := func(kind, oldV, newV string) {
		events = append(events, model.ChangeEvent{
			Kind:        kind,
			DepartureID: prev.DepartureID,
			OldValue:    oldV,
			NewValue:    newV,
			At:          now,
		})
	}

	if prev.AvailableSeats != nil && next.AvailableSeats != nil {
		oldA, newA := *prev.AvailableSeats, *next.AvailableSeats
		oldS, newS := strconv.Itoa(oldA), strconv.Itoa(newA)
		switch {
		case newA < oldA:
			emit(model.EventAvailabilityDecreased, oldS, newS)
			if newA == 0 {
				emit(model.EventBecameFull, oldS, newS)
			}
		case newA > oldA:
			emit(model.EventAvailabilityIncreased, oldS, newS)
			if oldA == 0 {
				emit(model.EventBecameAvailable, oldS, newS)
			}
		}
	}

	if prev.TotalSeats != nil && next.TotalSeats != nil && *prev.TotalSeats != *next.TotalSeats {
		emit(model.EventCapacityChanged, strconv.Itoa(*prev.TotalSeats), strconv.Itoa(*next.TotalSeats))
	}

	if prev.Status != nil && next.Status != nil && *prev.Status != *next.Status {
		emit(model.EventStatusChanged, *prev.Status, *next.Status)
	}

	if prev.PriceCents != nil && next.PriceCents != nil && *prev.PriceCents != *next.PriceCents {
		emit(model.EventPriceChanged, formatCents(*prev.PriceCents), formatCents(*next.PriceCents))
	}

	return events
}

// Merge builds the replacement snapshot from the previous one and the
// fetched fields. A field absent from next carries the previously known
// value forward; a field present always wins, even when it equals the
// old value. The result is a complete snapshot: this is the only way
// snapshots are produced, so partial updates cannot exist.
func Merge(prev *model.AvailabilitySnapshot, next model.FetchedAvailability, departureID uint64, now time.Time) *model.AvailabilitySnapshot {
	merged := &model.AvailabilitySnapshot{DepartureID: departureID, CapturedAt: now}
	if prev != nil {
		merged.AvailableSeats = prev.AvailableSeats
		merged.TotalSeats = prev.TotalSeats
		merged.Status = prev.Status
		merged.PriceCents = prev.PriceCents
	}
	if next.AvailableSeats != nil {
		merged.AvailableSeats = next.AvailableSeats
	}
	if next.TotalSeats != nil {
		merged.TotalSeats = next.TotalSeats
	}
	if next.Status != nil {
		merged.Status = next.Status
	}
	if next.PriceCents != nil {
		merged.PriceCents = next.PriceCents
	}
	return merged
}

// formatCents renders a cents amount as a decimal string ("120.00") so
// event values read naturally in notifications and logs.
func formatCents(c uint32) string {
	return strconv.FormatUint(uint64(c/100), 10) + "." + pad2(c%100)
}

func pad2(n uint32) string {
	if n < 10 {
		return "0" + strconv.FormatUint(uint64(n), 10)
	}
	return strconv.FormatUint(uint64(n), 10)
}
