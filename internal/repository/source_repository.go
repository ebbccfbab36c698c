package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nomadica/circuit-sync/internal/model"
)

// SourceRepo manages persistence for external sources. The extraction
// rules map is stored as a JSON document; the locator strings inside it
// are opaque to this layer.
type SourceRepo struct {
	db *sql.DB
}

// NewSourceRepo constructs a SourceRepo with the given DB handle.
func NewSourceRepo(db *sql.DB) *SourceRepo {
	return &SourceRepo{db: db}
}

func encodeRules(rules map[string]string) (string, error) {
	if len(rules) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(rules)
	if err != nil {
		return "", fmt.Errorf("encode rules: %w", err)
	}
	return string(b), nil
}

func decodeRules(raw string) (map[string]string, error) {
	rules := map[string]string{}
	if raw == "" {
		return rules, nil
	}
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	return rules, nil
}

// Create inserts a source and assigns the generated ID back to it. A
// circuit can carry at most one source; a second insert for the same
// circuit returns ErrConflict via the unique key on circuit_id.
func (r *SourceRepo) Create(ctx context.Context, s *model.ExternalSource) error {
	rules, err := encodeRules(s.Rules)
	if err != nil {
		return err
	}
	const q = `INSERT INTO external_sources (circuit_id, departure_id, url, kind, frequency, rules, active)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.CircuitID, s.DepartureID, s.URL, s.Kind, s.Frequency, rules, s.Active)
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
	s.ID = uint64(id)
	return nil
}

const sourceColumns = `id, circuit_id, departure_id, url, kind, frequency, rules, active,
	last_sync_at, last_sync_status, last_sync_error, consecutive_failures, created_at, updated_at`

func scanSource(row interface{ Scan(...any) error }) (*model.ExternalSource, error) {
	var (
		s     model.ExternalSource
		rules string
	)
	err := row.Scan(&s.ID, &s.CircuitID, &s.DepartureID, &s.URL, &s.Kind, &s.Frequency, &rules, &s.Active,
		&s.LastSyncAt, &s.LastSyncStatus, &s.LastSyncError, &s.ConsecutiveFailures, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Rules, err = decodeRules(rules)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID fetches one source or ErrNotFound.
func (r *SourceRepo) GetByID(ctx context.Context, id uint64) (*model.ExternalSource, error) {
	s, err := scanSource(r.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM external_sources WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return s, err
}

// List returns every source, newest first, for the operator screens.
func (r *SourceRepo) List(ctx context.Context) ([]model.ExternalSource, error) {
	return r.list(ctx, `SELECT `+sourceColumns+` FROM external_sources ORDER BY id DESC`)
}

// LoadActive returns the active sources the scheduler may trigger.
// Manual-frequency sources are excluded by definition, and so are
// manual-kind ones regardless of frequency: they have nothing to fetch.
func (r *SourceRepo) LoadActive(ctx context.Context) ([]model.ExternalSource, error) {
	return r.list(ctx,
		`SELECT `+sourceColumns+` FROM external_sources WHERE active = 1 AND frequency <> ? AND kind <> ?`,
		model.FreqManual, model.SourceManual)
}

func (r *SourceRepo) list(ctx context.Context, q string, args ...any) ([]model.ExternalSource, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ExternalSource
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Update rewrites the operator-owned fields of a source.
func (r *SourceRepo) Update(ctx context.Context, s *model.ExternalSource) error {
	rules, err := encodeRules(s.Rules)
	if err != nil {
		return err
	}
	const q = `UPDATE external_sources
	           SET url = ?, kind = ?, frequency = ?, rules = ?, active = ?, departure_id = ?
	           WHERE id = ?`
	_, err = r.db.ExecContext(ctx, q, s.URL, s.Kind, s.Frequency, rules, s.Active, s.DepartureID, s.ID)
	return err
}

// Delete removes a source.
func (r *SourceRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM external_sources WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// RecordOutcome writes the result of one sync run. A success resets the
// consecutive failure counter and clears the stored error; a failure
// increments the counter and keeps the message for the operator.
func (r *SourceRepo) RecordOutcome(ctx context.Context, id uint64, status string, errMsg string, at time.Time) error {
	if status == model.SyncSuccess {
		const q = `UPDATE external_sources
		           SET last_sync_at = ?, last_sync_status = ?, last_sync_error = NULL, consecutive_failures = 0
		           WHERE id = ?`
		_, err := r.db.ExecContext(ctx, q, at, status, id)
		return err
	}
	const q = `UPDATE external_sources
	           SET last_sync_at = ?, last_sync_status = ?, last_sync_error = ?,
	               consecutive_failures = consecutive_failures + 1
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, at, status, errMsg, id)
	return err
}
