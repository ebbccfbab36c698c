package repository

import (
	"context"
	"database/sql"

	"github.com/nomadica/circuit-sync/internal/model"
)

// DepartureRepo manages persistence for departures.
type DepartureRepo struct {
	db *sql.DB
}

// NewDepartureRepo constructs a DepartureRepo with the given DB handle.
func NewDepartureRepo(db *sql.DB) *DepartureRepo {
	return &DepartureRepo{db: db}
}

// Create inserts a departure and assigns the generated ID back to it.
func (r *DepartureRepo) Create(ctx context.Context, d *model.Departure) error {
	const q = `INSERT INTO departures (circuit_id, start_date, total_seats, booked_seats, price_cents, status)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, d.CircuitID, d.StartDate, d.TotalSeats, d.BookedSeats, d.PriceCents, d.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

const departureColumns = `id, circuit_id, start_date, total_seats, booked_seats, price_cents, status, created_at, updated_at`

func scanDeparture(row interface{ Scan(...any) error }) (*model.Departure, error) {
	var d model.Departure
	err := row.Scan(&d.ID, &d.CircuitID, &d.StartDate, &d.TotalSeats, &d.BookedSeats, &d.PriceCents, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByID fetches one departure or ErrNotFound.
func (r *DepartureRepo) GetByID(ctx context.Context, id uint64) (*model.Departure, error) {
	d, err := scanDeparture(r.db.QueryRowContext(ctx,
		`SELECT `+departureColumns+` FROM departures WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return d, err
}

// ListByCircuit returns a circuit's departures ordered by start date.
func (r *DepartureRepo) ListByCircuit(ctx context.Context, circuitID uint64) ([]model.Departure, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+departureColumns+` FROM departures WHERE circuit_id = ? ORDER BY start_date`, circuitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Departure
	for rows.Next() {
		d, err := scanDeparture(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// ApplySnapshot writes the seat counts and status derived from a
// successful sync. Only the columns passed non-nil are touched, so a
// field the fetch did not observe keeps its stored value.
func (r *DepartureRepo) ApplySnapshot(ctx context.Context, id uint64, totalSeats, bookedSeats *int, status *string) error {
	const q = `UPDATE departures
	           SET total_seats  = COALESCE(?, total_seats),
	               booked_seats = COALESCE(?, booked_seats),
	               status       = COALESCE(?, status)
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, totalSeats, bookedSeats, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		// MySQL reports zero affected rows for a no-op update too, so
		// confirm the row exists before calling it missing.
		var exists uint64
		if scanErr := r.db.QueryRowContext(ctx, `SELECT id FROM departures WHERE id = ?`, id).Scan(&exists); scanErr == sql.ErrNoRows {
			return ErrNotFound
		}
	}
	return err
}

// RecordBooking applies an internal booking delta to booked_seats. The
// guarded UPDATE refuses to push booked outside [0, total]; a refused
// delta surfaces as ErrConflict, never a clamped write.
func (r *DepartureRepo) RecordBooking(ctx context.Context, id uint64, seatsDelta int) (*model.Departure, error) {
	const q = `UPDATE departures
	           SET booked_seats = booked_seats + ?
	           WHERE id = ? AND booked_seats + ? BETWEEN 0 AND total_seats`
	res, err := r.db.ExecContext(ctx, q, seatsDelta, id, seatsDelta)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}
	return r.GetByID(ctx, id)
}
