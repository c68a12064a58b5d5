package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
)

// PortfolioSnapshot is one point of the equity curve
type PortfolioSnapshot struct {
	ID              int             `json:"id"`
	Cash            decimal.Decimal `json:"cash"`
	Equity          decimal.Decimal `json:"equity"`
	UnrealisedPnL   decimal.Decimal `json:"unrealised_pnl"`
	RealisedPnL     decimal.Decimal `json:"realised_pnl"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	OpenPositions   int             `json:"open_positions"`
	Reason          string          `json:"reason"`
	RecordedAt      time.Time       `json:"recorded_at"`
}

// NewPortfolioSnapshot stamps a portfolio snapshot for recording.
func NewPortfolioSnapshot(s portfolio.Snapshot, reason string, at time.Time) *PortfolioSnapshot {
	return &PortfolioSnapshot{
		Cash:            s.Cash,
		Equity:          s.Equity,
		UnrealisedPnL:   s.UnrealisedPnL,
		RealisedPnL:     s.RealisedPnL,
		TotalCommission: s.TotalCommission,
		OpenPositions:   s.OpenPositions,
		Reason:          reason,
		RecordedAt:      at,
	}
}

// SnapshotEvent represents a Kafka event carrying a portfolio snapshot
type SnapshotEvent struct {
	EventType   string             `json:"event_type"`
	PortfolioID string             `json:"portfolio_id"`
	Snapshot    *PortfolioSnapshot `json:"snapshot"`
	Timestamp   time.Time          `json:"timestamp"`
}
