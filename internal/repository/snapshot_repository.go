package repository

import (
	"context"
	"database/sql"

	"github.com/nomadica/circuit-sync/internal/model"
)

// SnapshotRepo manages the last-known availability snapshot per
// departure. The table holds exactly one row per departure; Save
// replaces the whole row atomically so a reader never observes a
// partially updated snapshot.
type SnapshotRepo struct {
	db *sql.DB
}

// NewSnapshotRepo constructs a SnapshotRepo with the given DB handle.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Load returns the stored snapshot for a departure, or (nil, nil) when
// the departure has never been synced. Absence is the normal first-sync
// state, not an error.
func (r *SnapshotRepo) Load(ctx context.Context, departureID uint64) (*model.AvailabilitySnapshot, error) {
	const q = `SELECT departure_id, available_seats, total_seats, status, price_cents, captured_at
	           FROM availability_snapshots WHERE departure_id = ?`
	var s model.AvailabilitySnapshot
	err := r.db.QueryRowContext(ctx, q, departureID).Scan(
		&s.DepartureID, &s.AvailableSeats, &s.TotalSeats, &s.Status, &s.PriceCents, &s.CapturedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts the snapshot row for a departure in a single statement.
func (r *SnapshotRepo) Save(ctx context.Context, s *model.AvailabilitySnapshot) error {
	const q = `INSERT INTO availability_snapshots (departure_id, available_seats, total_seats, status, price_cents, captured_at)
	           VALUES (?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	               available_seats = VALUES(available_seats),
	               total_seats     = VALUES(total_seats),
	               status          = VALUES(status),
	               price_cents     = VALUES(price_cents),
	               captured_at     = VALUES(captured_at)`
	_, err := r.db.ExecContext(ctx, q,
		s.DepartureID, s.AvailableSeats, s.TotalSeats, s.Status, s.PriceCents, s.CapturedAt)
	return err
}
