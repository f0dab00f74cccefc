// Package store persists one close-price snapshot per instrument per
// trading day and answers nearest-preceding-date lookups against that
// history.
package store

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoClose is returned when no qualifying close-price row exists.
var ErrNoClose = errors.New("no close price found")

// CloseRow is one persisted close-price observation. Rows are unique
// per (Symbol, SnapshotDate).
type CloseRow struct {
	Symbol       string
	Label        string
	SnapshotDate time.Time
	CloseValue   float64
	DailyChange  *float64
}

// CloseRepository implements the close-price history store on
// PostgreSQL.
type CloseRepository struct {
	pool *pgxpool.Pool
}

// NewCloseRepository creates a new close-price repository.
func NewCloseRepository(pool *pgxpool.Pool) *CloseRepository {
	return &CloseRepository{pool: pool}
}

// ClosestOnOrBefore returns the most recent close value for symbol
// with snapshot_date <= date. Nearest preceding, never following.
// Returns ErrNoClose when no qualifying row exists.
func (r *CloseRepository) ClosestOnOrBefore(ctx context.Context, symbol string, date time.Time) (float64, error) {
	query := `
		SELECT close_value
		FROM previous_close
		WHERE symbol = $1 AND snapshot_date <= $2
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	var value float64
	err := r.pool.QueryRow(ctx, query, symbol, date).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoClose
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}

// Upsert writes a close-price snapshot, atomic per (symbol,
// snapshot_date). Re-running on the same day overwrites that day's row
// and never touches earlier history.
func (r *CloseRepository) Upsert(ctx context.Context, row CloseRow) error {
	query := `
		INSERT INTO previous_close (symbol, label, snapshot_date, close_value, daily_change)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol, snapshot_date) DO UPDATE SET
			label = EXCLUDED.label,
			close_value = EXCLUDED.close_value,
			daily_change = EXCLUDED.daily_change
	`

	closeValue := round2(row.CloseValue)
	var dailyChange *float64
	if row.DailyChange != nil {
		dc := round2(*row.DailyChange)
		dailyChange = &dc
	}

	_, err := r.pool.Exec(ctx, query,
		row.Symbol, row.Label, row.SnapshotDate, closeValue, dailyChange,
	)
	return err
}

// AllOrdered returns the full history, newest first. Used by the
// backup dump.
func (r *CloseRepository) AllOrdered(ctx context.Context) ([]CloseRow, error) {
	query := `
		SELECT symbol, label, snapshot_date, close_value, daily_change
		FROM previous_close
		ORDER BY snapshot_date DESC, symbol ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CloseRow
	for rows.Next() {
		var row CloseRow
		if err := rows.Scan(&row.Symbol, &row.Label, &row.SnapshotDate, &row.CloseValue, &row.DailyChange); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
