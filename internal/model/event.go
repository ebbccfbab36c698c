package model

import "time"

// Change event kinds. availability_* and became_* events are derived
// from the synced seat counts; new_booking is raised by the internal
// booking flow and never by a sync.
const (
	EventAvailabilityDecreased = "availability_decreased"
	EventAvailabilityIncreased = "availability_increased"
	EventBecameFull            = "became_full"
	EventBecameAvailable       = "became_available"
	EventCapacityChanged       = "capacity_changed"
	EventStatusChanged         = "status_changed"
	EventPriceChanged          = "price_changed"
	EventNewBooking            = "new_booking"
)

// ChangeEvent is an ephemeral value describing one meaningful change
// observed on a departure. Events live only for the dispatch cycle that
// produced them; they are not persisted.
type ChangeEvent struct {
	Kind        string
	DepartureID uint64
	OldValue    string
	NewValue    string
	At          time.Time
}
