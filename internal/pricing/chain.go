package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
)

// Chain asks each source in turn and returns the first quote found.
type Chain []portfolio.PriceSource

// BestBidAsk implements portfolio.PriceSource.
func (c Chain) BestBidAsk(ctx context.Context, symbol string) (decimal.Decimal, decimal.Decimal, error) {
	var lastErr error
	for _, src := range c {
		bid, ask, err := src.BestBidAsk(ctx, symbol)
		if err == nil {
			return bid, ask, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: no price sources configured", portfolio.ErrQuoteUnavailable)
	}
	if errors.Is(lastErr, portfolio.ErrQuoteUnavailable) {
		return decimal.Zero, decimal.Zero, lastErr
	}
	return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %v", portfolio.ErrQuoteUnavailable, lastErr)
}
