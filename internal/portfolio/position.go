package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Position holds the accounting state of a single instrument.
//
// Buy and sell sides accumulate independently for the whole life of the
// position, they are never reset when the position goes flat. Realised P&L is
// re-derived from both side costs on every fill, over the matched quantity
// min(BuyQuantity, SellQuantity). The averages are reported only; P&L is taken
// pro rata from the side costs so a fully matched side is booked exactly.
//
// MarketValue and UnrealisedPnL are derived from the last quote passed to
// UpdateMarketValue.
type Position struct {
	Symbol          string          `json:"symbol"`
	Quantity        int64           `json:"quantity"`
	BuyQuantity     int64           `json:"buy_quantity"`
	SellQuantity    int64           `json:"sell_quantity"`
	BuyCost         decimal.Decimal `json:"buy_cost"`
	SellCost        decimal.Decimal `json:"sell_cost"`
	AvgBoughtPrice  decimal.Decimal `json:"avg_bought_price"`
	AvgSoldPrice    decimal.Decimal `json:"avg_sold_price"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	RealisedPnL     decimal.Decimal `json:"realised_pnl"`
	UnrealisedPnL   decimal.Decimal `json:"unrealised_pnl"`
	MarketValue     decimal.Decimal `json:"market_value"`
}

// NewPosition creates a flat position for symbol.
func NewPosition(symbol string) *Position {
	return &Position{Symbol: symbol}
}

// Transact books a fill against the position. Nothing is modified when an
// error is returned.
func (p *Position) Transact(side Side, quantity int64, price, commission decimal.Decimal) error {
	if err := validateFill(side, quantity, price, commission); err != nil {
		return fmt.Errorf("%s: %w", p.Symbol, err)
	}

	q := decimal.NewFromInt(quantity)
	gross := price.Mul(q)

	switch side {
	case Buy:
		p.BuyQuantity += quantity
		p.BuyCost = p.BuyCost.Add(gross)
		p.AvgBoughtPrice = p.BuyCost.Div(decimal.NewFromInt(p.BuyQuantity))
	case Sell:
		p.SellQuantity += quantity
		p.SellCost = p.SellCost.Add(gross)
		p.AvgSoldPrice = p.SellCost.Div(decimal.NewFromInt(p.SellQuantity))
	}

	p.Quantity = p.BuyQuantity - p.SellQuantity
	p.TotalCommission = p.TotalCommission.Add(commission)
	matched := p.MatchedQuantity()
	p.RealisedPnL = costOf(p.SellCost, p.SellQuantity, matched).
		Sub(costOf(p.BuyCost, p.BuyQuantity, matched)).
		Sub(p.TotalCommission)

	return nil
}

// UpdateMarketValue marks the open quantity to the quote. Longs are marked at
// the bid and shorts at the ask.
func (p *Position) UpdateMarketValue(bid, ask decimal.Decimal) {
	switch {
	case p.Quantity > 0:
		q := decimal.NewFromInt(p.Quantity)
		p.MarketValue = bid.Mul(q)
		p.UnrealisedPnL = p.MarketValue.Sub(costOf(p.BuyCost, p.BuyQuantity, p.Quantity))
	case p.Quantity < 0:
		q := decimal.NewFromInt(-p.Quantity)
		p.MarketValue = ask.Mul(q).Neg()
		p.UnrealisedPnL = costOf(p.SellCost, p.SellQuantity, -p.Quantity).Add(p.MarketValue)
	default:
		p.MarketValue = decimal.Zero
		p.UnrealisedPnL = decimal.Zero
	}
}

// MatchedQuantity is the quantity closed out so far.
func (p *Position) MatchedQuantity() int64 {
	return min(p.BuyQuantity, p.SellQuantity)
}

// OpenQuantity is the absolute quantity not yet matched.
func (p *Position) OpenQuantity() int64 {
	if p.Quantity < 0 {
		return -p.Quantity
	}
	return p.Quantity
}

// IsFlat reports whether the position has no open quantity.
func (p *Position) IsFlat() bool {
	return p.Quantity == 0
}

// Clone returns an independent copy of the position.
func (p *Position) Clone() *Position {
	c := *p
	return &c
}

// costOf returns the share of a side's cost attributable to quantity units,
// multiplying before dividing. The whole side returns cost unchanged.
func costOf(cost decimal.Decimal, sideQuantity, quantity int64) decimal.Decimal {
	switch {
	case sideQuantity == 0 || quantity == 0:
		return decimal.Zero
	case quantity == sideQuantity:
		return cost
	}
	return cost.Mul(decimal.NewFromInt(quantity)).Div(decimal.NewFromInt(sideQuantity))
}

func validateFill(side Side, quantity int64, price, commission decimal.Decimal) error {
	if !side.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownSide, side)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	if commission.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidCommission, commission)
	}
	return nil
}
