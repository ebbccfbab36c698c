package model

import "time"

// WatchlistSubscription records an agency's interest in one circuit.
// The three notify flags are independently toggleable and take effect
// on the next evaluated event; there is no retroactive notification.
// Unique per (agency, circuit).
type WatchlistSubscription struct {
	ID                     uint64    // watchlist_subscriptions.id
	AgencyID               uint64    // watchlist_subscriptions.agency_id
	CircuitID              uint64    // watchlist_subscriptions.circuit_id
	NotifyOnBooking        bool      // watchlist_subscriptions.notify_on_booking
	NotifyOnAvailability   bool      // watchlist_subscriptions.notify_on_availability_change
	NotifyOnPriceChange    bool      // watchlist_subscriptions.notify_on_price_change
	CreatedAt              time.Time // watchlist_subscriptions.created_at
	UpdatedAt              time.Time // watchlist_subscriptions.updated_at
}
