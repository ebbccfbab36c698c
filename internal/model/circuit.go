package model

import "time"

// Circuit is a sellable guaranteed-departure product. The sync engine
// never mutates circuits; they exist as the foreign-key target for
// departures, sources and watchlist subscriptions.
type Circuit struct {
	ID             uint64    // circuits.id
	Title          string    // circuits.title
	BasePriceCents uint32    // circuits.base_price_cents
	DurationDays   uint32    // circuits.duration_days
	CreatedAt      time.Time // circuits.created_at
	UpdatedAt      time.Time // circuits.updated_at
}
