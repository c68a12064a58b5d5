package database

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-ledger/internal/models"
)

// CreateRoundTrip inserts a closed round trip record
func (db *DB) CreateRoundTrip(r *models.RoundTrip) error {
	return insertRoundTrip(db.conn, r)
}

func insertRoundTrip(q rowQueryer, r *models.RoundTrip) error {
	query := `
		INSERT INTO round_trips (
			symbol, direction, max_quantity, fills, realized_pnl, commission,
			opened_at, closed_at, holding_period_hours, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	now := time.Now()
	if r.HoldingPeriodHours == 0 && !r.OpenedAt.IsZero() && r.ClosedAt.After(r.OpenedAt) {
		r.HoldingPeriodHours = int(r.ClosedAt.Sub(r.OpenedAt).Hours())
	}

	err := q.QueryRow(query,
		r.Symbol, r.Direction, r.MaxQuantity, r.Fills, r.RealizedPnl, r.Commission,
		r.OpenedAt, r.ClosedAt, r.HoldingPeriodHours, now,
	).Scan(&r.ID)

	if err != nil {
		return fmt.Errorf("failed to create round trip: %w", err)
	}
	r.CreatedAt = now
	return nil
}

// GetRoundTripsBySymbol retrieves closed round trips for a symbol, most recent first
func (db *DB) GetRoundTripsBySymbol(symbol string, limit int) ([]*models.RoundTrip, error) {
	query := `
		SELECT id, symbol, direction, max_quantity, fills, realized_pnl, commission,
		       opened_at, closed_at, holding_period_hours, created_at
		FROM round_trips
		WHERE symbol = $1
		ORDER BY closed_at DESC, id DESC
		LIMIT $2
	`
	rows, err := db.conn.Query(query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query round trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.RoundTrip
	for rows.Next() {
		var r models.RoundTrip
		err := rows.Scan(
			&r.ID, &r.Symbol, &r.Direction, &r.MaxQuantity, &r.Fills, &r.RealizedPnl, &r.Commission,
			&r.OpenedAt, &r.ClosedAt, &r.HoldingPeriodHours, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round trip: %w", err)
		}
		trips = append(trips, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate round trips: %w", err)
	}

	return trips, nil
}

// RoundTripStats holds aggregated round trip statistics
type RoundTripStats struct {
	TotalTrips   int             `json:"total_trips"`
	WinningTrips int             `json:"winning_trips"`
	LosingTrips  int             `json:"losing_trips"`
	WinRate      decimal.Decimal `json:"win_rate"`
	TotalPnl     decimal.Decimal `json:"total_pnl"`
	AvgWin       decimal.Decimal `json:"avg_win"`
	AvgLoss      decimal.Decimal `json:"avg_loss"`
}

// GetRoundTripStats returns win/loss statistics over all closed round trips
func (db *DB) GetRoundTripStats() (*RoundTripStats, error) {
	query := `
		SELECT
			COUNT(*) as total_trips,
			COUNT(*) FILTER (WHERE realized_pnl > 0) as winning_trips,
			COUNT(*) FILTER (WHERE realized_pnl < 0) as losing_trips,
			COALESCE(SUM(realized_pnl), 0) as total_pnl,
			COALESCE(AVG(realized_pnl) FILTER (WHERE realized_pnl > 0), 0) as avg_win,
			COALESCE(AVG(realized_pnl) FILTER (WHERE realized_pnl < 0), 0) as avg_loss
		FROM round_trips
	`
	var stats RoundTripStats
	err := db.conn.QueryRow(query).Scan(
		&stats.TotalTrips, &stats.WinningTrips, &stats.LosingTrips,
		&stats.TotalPnl, &stats.AvgWin, &stats.AvgLoss,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get round trip stats: %w", err)
	}

	if stats.TotalTrips > 0 {
		stats.WinRate = decimal.NewFromInt(int64(stats.WinningTrips)).
			Div(decimal.NewFromInt(int64(stats.TotalTrips))).
			Mul(decimal.NewFromInt(100))
	}

	return &stats, nil
}
