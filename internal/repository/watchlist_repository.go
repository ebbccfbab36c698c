package repository

import (
	"context"
	"database/sql"

	"github.com/nomadica/circuit-sync/internal/model"
)

// WatchlistRepo manages agency watchlist subscriptions. Uniqueness per
// (agency, circuit) is enforced by the table's unique key.
type WatchlistRepo struct {
	db *sql.DB
}

// NewWatchlistRepo constructs a WatchlistRepo with the given DB handle.
func NewWatchlistRepo(db *sql.DB) *WatchlistRepo {
	return &WatchlistRepo{db: db}
}

// Subscribe inserts a subscription and assigns the generated ID back to
// it. Subscribing to a circuit already on the agency's watchlist is
// ErrConflict; callers wanting to change flags use UpdateFlags.
func (r *WatchlistRepo) Subscribe(ctx context.Context, w *model.WatchlistSubscription) error {
	const q = `INSERT INTO watchlist_subscriptions
	           (agency_id, circuit_id, notify_on_booking, notify_on_availability_change, notify_on_price_change)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		w.AgencyID, w.CircuitID, w.NotifyOnBooking, w.NotifyOnAvailability, w.NotifyOnPriceChange)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)
	return nil
}

// Unsubscribe removes an agency's subscription to a circuit.
func (r *WatchlistRepo) Unsubscribe(ctx context.Context, agencyID, circuitID uint64) error {
	const q = `DELETE FROM watchlist_subscriptions WHERE agency_id = ? AND circuit_id = ?`
	res, err := r.db.ExecContext(ctx, q, agencyID, circuitID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// UpdateFlags rewrites the three notify flags of a subscription. The
// new flags take effect from the next dispatched event.
func (r *WatchlistRepo) UpdateFlags(ctx context.Context, agencyID, circuitID uint64, booking, availability, price bool) error {
	const q = `UPDATE watchlist_subscriptions
	           SET notify_on_booking = ?, notify_on_availability_change = ?, notify_on_price_change = ?
	           WHERE agency_id = ? AND circuit_id = ?`
	_, err := r.db.ExecContext(ctx, q, booking, availability, price, agencyID, circuitID)
	if err != nil {
		return err
	}
	var exists uint64
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM watchlist_subscriptions WHERE agency_id = ? AND circuit_id = ?`,
		agencyID, circuitID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

const watchlistColumns = `id, agency_id, circuit_id, notify_on_booking, notify_on_availability_change,
	notify_on_price_change, created_at, updated_at`

// ListByCircuit returns every subscription watching a circuit. The
// dispatcher reads through this during a cycle; edits made concurrently
// by an agency are only seen by the next cycle.
func (r *WatchlistRepo) ListByCircuit(ctx context.Context, circuitID uint64) ([]model.WatchlistSubscription, error) {
	return r.list(ctx,
		`SELECT `+watchlistColumns+` FROM watchlist_subscriptions WHERE circuit_id = ?`, circuitID)
}

// ListByAgency returns an agency's whole watchlist.
func (r *WatchlistRepo) ListByAgency(ctx context.Context, agencyID uint64) ([]model.WatchlistSubscription, error) {
	return r.list(ctx,
		`SELECT `+watchlistColumns+` FROM watchlist_subscriptions WHERE agency_id = ? ORDER BY circuit_id`, agencyID)
}

func (r *WatchlistRepo) list(ctx context.Context, q string, args ...any) ([]model.WatchlistSubscription, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WatchlistSubscription
	for rows.Next() {
		var w model.WatchlistSubscription
		if err := rows.Scan(&w.ID, &w.AgencyID, &w.CircuitID, &w.NotifyOnBooking,
			&w.NotifyOnAvailability, &w.NotifyOnPriceChange, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
