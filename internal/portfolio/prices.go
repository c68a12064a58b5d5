package portfolio

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// StaticPrices is a fixed quote table. It is useful for backtests with
// known marks and in tests.
type StaticPrices map[string][2]decimal.Decimal

// Set stores a bid/ask pair for symbol.
func (s StaticPrices) Set(symbol string, bid, ask decimal.Decimal) {
	s[symbol] = [2]decimal.Decimal{bid, ask}
}

// BestBidAsk implements PriceSource.
func (s StaticPrices) BestBidAsk(_ context.Context, symbol string) (decimal.Decimal, decimal.Decimal, error) {
	q, ok := s[symbol]
	if !ok {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: no static quote", ErrQuoteUnavailable)
	}
	return q[0], q[1], nil
}
