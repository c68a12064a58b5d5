package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
)

// PositionRecord is the persisted state of one instrument's position
type PositionRecord struct {
	ID              int             `json:"id"`
	Symbol          string          `json:"symbol"`
	Quantity        int64           `json:"quantity"`
	BuyQuantity     int64           `json:"buy_quantity"`
	SellQuantity    int64           `json:"sell_quantity"`
	AvgBoughtPrice  decimal.Decimal `json:"avg_bought_price"`
	AvgSoldPrice    decimal.Decimal `json:"avg_sold_price"`
	BuyCost         decimal.Decimal `json:"buy_cost"`
	SellCost        decimal.Decimal `json:"sell_cost"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	RealisedPnL     decimal.Decimal `json:"realised_pnl"`
	UnrealisedPnL   decimal.Decimal `json:"unrealised_pnl"`
	MarketValue     decimal.Decimal `json:"market_value"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewPositionRecord copies the accounting state of p into a record.
func NewPositionRecord(p portfolio.Position) *PositionRecord {
	return &PositionRecord{
		Symbol:          p.Symbol,
		Quantity:        p.Quantity,
		BuyQuantity:     p.BuyQuantity,
		SellQuantity:    p.SellQuantity,
		AvgBoughtPrice:  p.AvgBoughtPrice,
		AvgSoldPrice:    p.AvgSoldPrice,
		BuyCost:         p.BuyCost,
		SellCost:        p.SellCost,
		TotalCommission: p.TotalCommission,
		RealisedPnL:     p.RealisedPnL,
		UnrealisedPnL:   p.UnrealisedPnL,
		MarketValue:     p.MarketValue,
	}
}
