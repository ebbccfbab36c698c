package model

import "time"

// AvailabilitySnapshot is the last-known availability tuple for a
// departure, used as the comparison baseline for change detection. A
// snapshot is created on the first successful sync and replaced as a
// whole on every successful sync after that; it is never partially
// updated. A nil field means the value has never been observed.
type AvailabilitySnapshot struct {
	DepartureID    uint64    // availability_snapshots.departure_id
	AvailableSeats *int      // availability_snapshots.available_seats (nullable)
	TotalSeats     *int      // availability_snapshots.total_seats (nullable)
	Status         *string   // availability_snapshots.status (nullable)
	PriceCents     *uint32   // availability_snapshots.price_cents (nullable)
	CapturedAt     time.Time // availability_snapshots.captured_at
}

// FetchedAvailability is the typed result of one fetch+extract pass.
// Every field is independently optional: a rule may be absent from the
// source configuration or its locator may match nothing, and neither
// case is an error.
type FetchedAvailability struct {
	AvailableSeats *int
	TotalSeats     *int
	Status         *string
	PriceCents     *uint32
	NextDeparture  *time.Time
}
