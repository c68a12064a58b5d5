package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-ledger/internal/models"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
)

// rowQueryer is satisfied by both *sql.DB and *sql.Tx
type rowQueryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

const fillColumns = `id, order_id, source, symbol, side, quantity, price, commission, executed_at, created_at`

// CreateFill inserts a new fill record
func (db *DB) CreateFill(f *models.Fill) error {
	return insertFill(db.conn, f)
}

func insertFill(q rowQueryer, f *models.Fill) error {
	query := `
		INSERT INTO fills (
			order_id, source, symbol, side, quantity, price, commission, executed_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING id
	`
	now := time.Now()
	executedAt := f.ExecutedAt
	if executedAt.IsZero() {
		executedAt = now
	}

	err := q.QueryRow(query,
		f.OrderID, f.Source, f.Symbol, f.Side.String(), f.Quantity, f.Price, f.Commission,
		executedAt, now,
	).Scan(&f.ID)

	if err != nil {
		return fmt.Errorf("failed to create fill: %w", err)
	}
	f.ExecutedAt = executedAt
	f.CreatedAt = now
	return nil
}

// FillExistsByOrderID checks if a fill with the given order_id and source was already booked
func (db *DB) FillExistsByOrderID(orderID, source string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM fills WHERE order_id = $1 AND source = $2)`
	var exists bool
	err := db.conn.QueryRow(query, orderID, source).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check fill existence: %w", err)
	}
	return exists, nil
}

// GetFillByID retrieves a fill by ID
func (db *DB) GetFillByID(id int) (*models.Fill, error) {
	query := `SELECT ` + fillColumns + ` FROM fills WHERE id = $1`

	f, err := scanFill(db.conn.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fill %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fill: %w", err)
	}
	return f, nil
}

// GetFillsBySymbol retrieves the most recent fills for a symbol
func (db *DB) GetFillsBySymbol(symbol string, limit int) ([]*models.Fill, error) {
	query := `
		SELECT ` + fillColumns + `
		FROM fills
		WHERE symbol = $1
		ORDER BY executed_at DESC, id DESC
		LIMIT $2
	`
	return db.scanFills(db.conn.Query(query, symbol, limit))
}

// GetAllFills retrieves every fill in booking order, oldest first
func (db *DB) GetAllFills() ([]*models.Fill, error) {
	query := `
		SELECT ` + fillColumns + `
		FROM fills
		ORDER BY executed_at ASC, id ASC
	`
	return db.scanFills(db.conn.Query(query))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFill(row rowScanner) (*models.Fill, error) {
	var f models.Fill
	var side string

	err := row.Scan(
		&f.ID, &f.OrderID, &f.Source, &f.Symbol, &side, &f.Quantity, &f.Price, &f.Commission,
		&f.ExecutedAt, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.Side, err = portfolio.ParseSide(side)
	if err != nil {
		return nil, fmt.Errorf("fill %d: %w", f.ID, err)
	}
	return &f, nil
}

func (db *DB) scanFills(rows *sql.Rows, err error) ([]*models.Fill, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query fills: %w", err)
	}
	defer rows.Close()

	var fills []*models.Fill
	for rows.Next() {
		f, err := scanFill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}
		fills = append(fills, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fills: %w", err)
	}

	return fills, nil
}
