package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-ledger/internal/models"
)

const positionColumns = `id, symbol, quantity, buy_quantity, sell_quantity,
		avg_bought_price, avg_sold_price, buy_cost, sell_cost, total_commission,
		realised_pnl, unrealised_pnl, market_value, created_at, updated_at`

// UpsertPosition inserts or updates the position for p.Symbol
func (db *DB) UpsertPosition(p *models.PositionRecord) error {
	return upsertPosition(db.conn, p)
}

func upsertPosition(q rowQueryer, p *models.PositionRecord) error {
	query := `
		INSERT INTO positions (
			symbol, quantity, buy_quantity, sell_quantity,
			avg_bought_price, avg_sold_price, buy_cost, sell_cost, total_commission,
			realised_pnl, unrealised_pnl, market_value, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		ON CONFLICT (symbol) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			buy_quantity = EXCLUDED.buy_quantity,
			sell_quantity = EXCLUDED.sell_quantity,
			avg_bought_price = EXCLUDED.avg_bought_price,
			avg_sold_price = EXCLUDED.avg_sold_price,
			buy_cost = EXCLUDED.buy_cost,
			sell_cost = EXCLUDED.sell_cost,
			total_commission = EXCLUDED.total_commission,
			realised_pnl = EXCLUDED.realised_pnl,
			unrealised_pnl = EXCLUDED.unrealised_pnl,
			market_value = EXCLUDED.market_value,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	now := time.Now()

	err := q.QueryRow(query,
		p.Symbol, p.Quantity, p.BuyQuantity, p.SellQuantity,
		p.AvgBoughtPrice, p.AvgSoldPrice, p.BuyCost, p.SellCost, p.TotalCommission,
		p.RealisedPnL, p.UnrealisedPnL, p.MarketValue, now,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert position %s: %w", p.Symbol, err)
	}
	p.UpdatedAt = now
	return nil
}

// ReplaceAllPositions atomically replaces the positions table with the given records
func (db *DB) ReplaceAllPositions(positions []*models.PositionRecord) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM positions`); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}

	for _, p := range positions {
		if err := upsertPosition(tx, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPositionBySymbol retrieves the position for a symbol
func (db *DB) GetPositionBySymbol(symbol string) (*models.PositionRecord, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE symbol = $1`

	p, err := scanPosition(db.conn.QueryRow(query, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("position %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return p, nil
}

// GetAllPositions retrieves every position ever held, ordered by symbol
func (db *DB) GetAllPositions() ([]*models.PositionRecord, error) {
	query := `SELECT ` + positionColumns + ` FROM positions ORDER BY symbol ASC`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []*models.PositionRecord
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}
	return positions, nil
}

func scanPosition(row rowScanner) (*models.PositionRecord, error) {
	var p models.PositionRecord
	err := row.Scan(
		&p.ID, &p.Symbol, &p.Quantity, &p.BuyQuantity, &p.SellQuantity,
		&p.AvgBoughtPrice, &p.AvgSoldPrice, &p.BuyCost, &p.SellCost, &p.TotalCommission,
		&p.RealisedPnL, &p.UnrealisedPnL, &p.MarketValue, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
