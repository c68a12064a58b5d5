package ledger

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-ledger/internal/models"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
)

// openTrip tracks a position from the fill that took it off flat.
// Realised P&L and commission are measured against the position's running
// totals at that moment.
type openTrip struct {
	direction      string
	openedAt       time.Time
	fills          int
	maxQuantity    int64
	realisedBase   decimal.Decimal
	commissionBase decimal.Decimal
}

func directionOf(quantity int64) string {
	if quantity < 0 {
		return models.DirectionShort
	}
	return models.DirectionLong
}

func sign(quantity int64) int {
	switch {
	case quantity > 0:
		return 1
	case quantity < 0:
		return -1
	}
	return 0
}

// advanceTrip folds one fill into the symbol's open trip. It returns the trip
// open after the fill and the trip the fill closed, if any. A fill that flips
// the position through zero closes the current trip, carrying that fill's
// commission, and opens the next one. The trip passed in is never modified.
func advanceTrip(open *openTrip, before, after portfolio.Position, at time.Time) (*openTrip, *models.RoundTrip) {
	switch {
	case before.IsFlat():
		open = nil
	case open != nil:
		c := *open
		open = &c
	default:
		open = &openTrip{
			direction:      directionOf(before.Quantity),
			openedAt:       at,
			maxQuantity:    before.OpenQuantity(),
			realisedBase:   before.RealisedPnL,
			commissionBase: before.TotalCommission,
		}
	}

	var closed *models.RoundTrip
	if open != nil {
		open.fills++
		if sign(after.Quantity) == sign(before.Quantity) {
			open.maxQuantity = max(open.maxQuantity, after.OpenQuantity())
			return open, nil
		}
		closed = open.close(after, at)
	}

	if after.IsFlat() {
		return nil, closed
	}

	next := &openTrip{
		direction:      directionOf(after.Quantity),
		openedAt:       at,
		fills:          1,
		maxQuantity:    after.OpenQuantity(),
		realisedBase:   before.RealisedPnL,
		commissionBase: before.TotalCommission,
	}
	if closed != nil {
		next.realisedBase = after.RealisedPnL
		next.commissionBase = after.TotalCommission
	}
	return next, closed
}

func (t *openTrip) close(p portfolio.Position, at time.Time) *models.RoundTrip {
	return &models.RoundTrip{
		Symbol:             p.Symbol,
		Direction:          t.direction,
		MaxQuantity:        t.maxQuantity,
		Fills:              t.fills,
		RealizedPnl:        p.RealisedPnL.Sub(t.realisedBase),
		Commission:         p.TotalCommission.Sub(t.commissionBase),
		OpenedAt:           t.openedAt,
		ClosedAt:           at,
		HoldingPeriodHours: int(at.Sub(t.openedAt).Hours()),
	}
}
