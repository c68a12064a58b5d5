package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
)

// Event type constants
const (
	EventTypeTradeDetected     = "TRADE_DETECTED"
	EventTypeFill              = "FILL"
	EventTypeQuoteUpdate       = "QUOTE_UPDATE"
	EventTypePortfolioSnapshot = "PORTFOLIO_SNAPSHOT"
)

// Fill is an executed trade as booked by the ledger. Fills are the source
// of truth: positions and snapshots can be rebuilt by replaying them.
type Fill struct {
	ID         int             `json:"id"`
	OrderID    string          `json:"order_id"`
	Source     string          `json:"source"`
	Symbol     string          `json:"symbol"`
	Side       portfolio.Side  `json:"side"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	ExecutedAt time.Time       `json:"executed_at"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Transaction converts the fill into a portfolio transaction.
func (f *Fill) Transaction() portfolio.Transaction {
	return portfolio.Transaction{
		Side:       f.Side,
		Symbol:     f.Symbol,
		Quantity:   f.Quantity,
		Price:      f.Price,
		Commission: f.Commission,
		ExecutedAt: f.ExecutedAt,
	}
}

// FillEvent is a fill as published on Kafka by an execution handler or a
// broker bridge. Numbers are string encoded to avoid float rounding.
type FillEvent struct {
	EventType string        `json:"event_type"`
	Source    string        `json:"source"`
	Timestamp string        `json:"timestamp"`
	Data      FillEventData `json:"data"`
}

// FillEventData holds the execution details of a FillEvent
type FillEventData struct {
	OrderID      string  `json:"order_id"`
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	Quantity     string  `json:"quantity"`
	AveragePrice string  `json:"average_price"`
	Fees         string  `json:"fees,omitempty"`
	ExecutedAt   *string `json:"executed_at,omitempty"`
}
