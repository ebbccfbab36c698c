package model

import "time"

// Departure status values. A status is usually derived from the synced
// booking state but can also be set by an operator, so FULL is not
// strictly tied to booked == total.
const (
	DepartureOpen      = "open"
	DepartureClosed    = "closed"
	DepartureFull      = "full"
	DepartureCancelled = "cancelled"
)

// Departure is one scheduled occurrence of a Circuit.
//
// Fields:
//  ID              - primary key identifier.
//  CircuitID       - circuit this departure belongs to.
//  StartDate       - first day of the trip.
//  TotalSeats      - capacity, always >= 1.
//  BookedSeats     - seats sold, 0 <= booked <= total.
//  PriceCents      - per-departure price override (nil means the
//                    circuit base price applies).
//  Status          - one of open, closed, full, cancelled.
//  CreatedAt       - creation timestamp.
//  UpdatedAt       - last update timestamp.
type Departure struct {
	ID          uint64     // departures.id
	CircuitID   uint64     // departures.circuit_id
	StartDate   time.Time  // departures.start_date
	TotalSeats  int        // departures.total_seats
	BookedSeats int        // departures.booked_seats
	PriceCents  *uint32    // departures.price_cents (nullable)
	Status      string     // departures.status
	CreatedAt   time.Time  // departures.created_at
	UpdatedAt   time.Time  // departures.updated_at
}

// AvailableSeats returns the seats still open for sale.
func (d Departure) AvailableSeats() int {
	a := d.TotalSeats - d.BookedSeats
	if a < 0 {
		return 0
	}
	return a
}

// ValidStatus reports whether s is a known departure status.
func ValidStatus(s string) bool {
	switch s {
	case DepartureOpen, DepartureClosed, DepartureFull, DepartureCancelled:
		return true
	}
	return false
}
