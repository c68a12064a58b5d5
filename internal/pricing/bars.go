package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-ledger/internal/database"
	"github.com/trogers1052/portfolio-ledger/internal/models"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
)

// BarRepository defines the daily bar lookup BarSource needs
type BarRepository interface {
	GetLatestPriceData(symbol string) (*models.PriceDataDaily, error)
}

// BarSource quotes from the latest stored daily bar. Bars carry no spread,
// so bid and ask are both the close.
type BarSource struct {
	repo BarRepository
}

// NewBarSource creates a BarSource over repo.
func NewBarSource(repo BarRepository) *BarSource {
	return &BarSource{repo: repo}
}

// BestBidAsk implements portfolio.PriceSource.
func (s *BarSource) BestBidAsk(_ context.Context, symbol string) (decimal.Decimal, decimal.Decimal, error) {
	bar, err := s.repo.GetLatestPriceData(symbol)
	if errors.Is(err, database.ErrNotFound) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: no daily bar", portfolio.ErrQuoteUnavailable)
	}
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return bar.Close, bar.Close, nil
}

var _ portfolio.PriceSource = (*BarSource)(nil)
