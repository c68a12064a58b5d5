package database

import (
	"fmt"

	"github.com/trogers1052/portfolio-ledger/internal/models"
)

// RecordLedgerEntry persists everything booked for one fill in a single
// transaction: the fill, the re-marked positions, the resulting snapshot and
// the round trip it closed, if any.
func (db *DB) RecordLedgerEntry(e *models.LedgerEntry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if e.Fill != nil {
		if err := insertFill(tx, e.Fill); err != nil {
			return err
		}
	}
	for _, p := range e.Positions {
		if err := upsertPosition(tx, p); err != nil {
			return err
		}
	}
	if e.Snapshot != nil {
		if err := insertSnapshot(tx, e.Snapshot); err != nil {
			return err
		}
	}
	if e.RoundTrip != nil {
		if err := insertRoundTrip(tx, e.RoundTrip); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger entry: %w", err)
	}
	return nil
}
