package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Round trip direction constants
const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"
)

// RoundTrip records a position that was opened from flat and later
// returned to flat
type RoundTrip struct {
	ID                 int             `json:"id"`
	Symbol             string          `json:"symbol"`
	Direction          string          `json:"direction"`
	MaxQuantity        int64           `json:"max_quantity"`
	Fills              int             `json:"fills"`
	RealizedPnl        decimal.Decimal `json:"realized_pnl"`
	Commission         decimal.Decimal `json:"commission"`
	OpenedAt           time.Time       `json:"opened_at"`
	ClosedAt           time.Time       `json:"closed_at"`
	HoldingPeriodHours int             `json:"holding_period_hours"`
	CreatedAt          time.Time       `json:"created_at"`
}
