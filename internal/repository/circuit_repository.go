package repository

import (
	"context"
	"database/sql"

	"github.com/nomadica/circuit-sync/internal/model"
)

// CircuitRepo manages persistence for circuits.
type CircuitRepo struct {
	db *sql.DB
}

// NewCircuitRepo constructs a CircuitRepo with the given DB handle.
func NewCircuitRepo(db *sql.DB) *CircuitRepo {
	return &CircuitRepo{db: db}
}

// Create inserts a circuit and assigns the generated ID back to it.
func (r *CircuitRepo) Create(ctx context.Context, c *model.Circuit) error {
	const q = `INSERT INTO circuits (title, base_price_cents, duration_days) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, c.Title, c.BasePriceCents, c.DurationDays)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches one circuit or ErrNotFound.
func (r *CircuitRepo) GetByID(ctx context.Context, id uint64) (*model.Circuit, error) {
	const q = `SELECT id, title, base_price_cents, duration_days, created_at, updated_at
	           FROM circuits WHERE id = ?`
	var c model.Circuit
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.Title, &c.BasePriceCents, &c.DurationDays, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all circuits ordered by title.
func (r *CircuitRepo) List(ctx context.Context) ([]model.Circuit, error) {
	const q = `SELECT id, title, base_price_cents, duration_days, created_at, updated_at
	           FROM circuits ORDER BY title`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Circuit
	for rows.Next() {
		var c model.Circuit
		if err := rows.Scan(&c.ID, &c.Title, &c.BasePriceCents, &c.DurationDays, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
