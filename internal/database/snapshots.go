package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-ledger/internal/models"
)

const snapshotColumns = `id, cash, equity, unrealised_pnl, realised_pnl, total_commission,
		open_positions, reason, recorded_at`

// CreateSnapshot appends a point to the equity curve
func (db *DB) CreateSnapshot(s *models.PortfolioSnapshot) error {
	return insertSnapshot(db.conn, s)
}

func insertSnapshot(q rowQueryer, s *models.PortfolioSnapshot) error {
	query := `
		INSERT INTO portfolio_snapshots (
			cash, equity, unrealised_pnl, realised_pnl, total_commission,
			open_positions, reason, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	if s.RecordedAt.IsZero() {
		s.RecordedAt = time.Now()
	}

	err := q.QueryRow(query,
		s.Cash, s.Equity, s.UnrealisedPnL, s.RealisedPnL, s.TotalCommission,
		s.OpenPositions, s.Reason, s.RecordedAt,
	).Scan(&s.ID)

	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

// GetLatestSnapshot retrieves the most recently recorded snapshot
func (db *DB) GetLatestSnapshot() (*models.PortfolioSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM portfolio_snapshots
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`
	s, err := scanSnapshot(db.conn.QueryRow(query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return s, nil
}

// GetEquityCurve retrieves snapshots recorded within a time range, oldest first
func (db *DB) GetEquityCurve(from, to time.Time) ([]*models.PortfolioSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM portfolio_snapshots
		WHERE recorded_at >= $1 AND recorded_at <= $2
		ORDER BY recorded_at ASC, id ASC
	`
	rows, err := db.conn.Query(query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query equity curve: %w", err)
	}
	defer rows.Close()

	var curve []*models.PortfolioSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		curve = append(curve, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate equity curve: %w", err)
	}
	return curve, nil
}

func scanSnapshot(row rowScanner) (*models.PortfolioSnapshot, error) {
	var s models.PortfolioSnapshot
	err := row.Scan(
		&s.ID, &s.Cash, &s.Equity, &s.UnrealisedPnL, &s.RealisedPnL, &s.TotalCommission,
		&s.OpenPositions, &s.Reason, &s.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
