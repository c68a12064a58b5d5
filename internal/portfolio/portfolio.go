package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource supplies the current best bid and ask for an instrument.
// Implementations return an error wrapping ErrQuoteUnavailable when they have
// no quote for the symbol.
type PriceSource interface {
	BestBidAsk(ctx context.Context, symbol string) (bid, ask decimal.Decimal, err error)
}

// Transaction is a single fill to be booked against the portfolio.
type Transaction struct {
	Side       Side            `json:"side"`
	Symbol     string          `json:"symbol"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// Snapshot is the aggregate view of a portfolio as of the last recompute.
type Snapshot struct {
	Cash            decimal.Decimal `json:"cash"`
	Equity          decimal.Decimal `json:"equity"`
	UnrealisedPnL   decimal.Decimal `json:"unrealised_pnl"`
	RealisedPnL     decimal.Decimal `json:"realised_pnl"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	OpenPositions   int             `json:"open_positions"`
}

type quote struct {
	bid, ask decimal.Decimal
}

// Portfolio is a multi-instrument ledger with a cash balance.
//
// A Portfolio is not safe for concurrent use. Every mutating call either
// completes fully or leaves the portfolio untouched.
type Portfolio struct {
	prices    PriceSource
	positions map[string]*Position

	cash          decimal.Decimal
	equity        decimal.Decimal
	unrealisedPnL decimal.Decimal
	realisedPnL   decimal.Decimal
}

// New creates a portfolio holding only initialCash.
func New(prices PriceSource, initialCash decimal.Decimal) (*Portfolio, error) {
	if prices == nil {
		return nil, errors.New("price source is required")
	}
	if initialCash.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCash, initialCash)
	}
	return &Portfolio{
		prices:    prices,
		positions: make(map[string]*Position),
		cash:      initialCash,
		equity:    initialCash,
	}, nil
}

// Apply books t. See ApplyTransaction.
func (pf *Portfolio) Apply(ctx context.Context, t Transaction) error {
	return pf.ApplyTransaction(ctx, t.Side, t.Symbol, t.Quantity, t.Price, t.Commission)
}

// ApplyTransaction books a fill: the addressed position is created on first
// sight, cash moves by the gross amount less commission, and every open
// position is re-marked with a fresh quote before the aggregates are
// recomputed.
func (pf *Portfolio) ApplyTransaction(ctx context.Context, side Side, symbol string, quantity int64, price, commission decimal.Decimal) error {
	if symbol == "" {
		return errors.New("symbol is required")
	}

	working, ok := pf.positions[symbol]
	if ok {
		working = working.Clone()
	} else {
		working = NewPosition(symbol)
	}
	if err := working.Transact(side, quantity, price, commission); err != nil {
		return err
	}

	gross := price.Mul(decimal.NewFromInt(quantity))
	cash := pf.cash.Sub(commission)
	if side == Buy {
		cash = cash.Sub(gross)
	} else {
		cash = cash.Add(gross)
	}

	quotes, err := pf.quoteOpen(ctx, working)
	if err != nil {
		return err
	}

	pf.positions[symbol] = working
	pf.cash = cash
	pf.remark(quotes)
	return nil
}

// MarkToMarket re-quotes every open position and recomputes the aggregates.
func (pf *Portfolio) MarkToMarket(ctx context.Context) error {
	quotes, err := pf.quoteOpen(ctx, nil)
	if err != nil {
		return err
	}
	pf.remark(quotes)
	return nil
}

// quoteOpen fetches a quote for every position that will be open once
// pending replaces its stored counterpart.
func (pf *Portfolio) quoteOpen(ctx context.Context, pending *Position) (map[string]quote, error) {
	quotes := make(map[string]quote)
	fetch := func(p *Position) error {
		if p.IsFlat() {
			return nil
		}
		bid, ask, err := pf.prices.BestBidAsk(ctx, p.Symbol)
		if err != nil {
			if errors.Is(err, ErrQuoteUnavailable) {
				return fmt.Errorf("%s: %w", p.Symbol, err)
			}
			return fmt.Errorf("%s: %w: %v", p.Symbol, ErrQuoteUnavailable, err)
		}
		quotes[p.Symbol] = quote{bid: bid, ask: ask}
		return nil
	}

	for symbol, p := range pf.positions {
		if pending != nil && symbol == pending.Symbol {
			continue
		}
		if err := fetch(p); err != nil {
			return nil, err
		}
	}
	if pending != nil {
		if err := fetch(pending); err != nil {
			return nil, err
		}
	}
	return quotes, nil
}

// remark applies quotes to all positions and recomputes the aggregates from
// the per-position fields.
func (pf *Portfolio) remark(quotes map[string]quote) {
	equity := pf.cash
	unrealised := decimal.Zero
	realised := decimal.Zero

	for symbol, p := range pf.positions {
		q := quotes[symbol]
		p.UpdateMarketValue(q.bid, q.ask)
		equity = equity.Add(p.MarketValue)
		unrealised = unrealised.Add(p.UnrealisedPnL)
		realised = realised.Add(p.RealisedPnL)
	}

	pf.equity = equity
	pf.unrealisedPnL = unrealised
	pf.realisedPnL = realised
}

// Snapshot reports the aggregates as of the last transaction or mark. It
// does not fetch quotes.
func (pf *Portfolio) Snapshot() Snapshot {
	s := Snapshot{
		Cash:            pf.cash,
		Equity:          pf.equity,
		UnrealisedPnL:   pf.unrealisedPnL,
		RealisedPnL:     pf.realisedPnL,
		TotalCommission: decimal.Zero,
	}
	for _, p := range pf.positions {
		s.TotalCommission = s.TotalCommission.Add(p.TotalCommission)
		if !p.IsFlat() {
			s.OpenPositions++
		}
	}
	return s
}

// Position returns a copy of the position for symbol, including flat ones.
func (pf *Portfolio) Position(symbol string) (Position, bool) {
	p, ok := pf.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Positions returns copies of all positions ever held, ordered by symbol.
func (pf *Portfolio) Positions() []Position {
	out := make([]Position, 0, len(pf.positions))
	for _, p := range pf.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Clone returns an independent copy of the portfolio sharing the same price
// source.
func (pf *Portfolio) Clone() *Portfolio {
	c := *pf
	c.positions = make(map[string]*Position, len(pf.positions))
	for symbol, p := range pf.positions {
		c.positions[symbol] = p.Clone()
	}
	return &c
}

// SetPriceSource replaces the source used by subsequent transactions and
// marks. Existing market values are kept until the next mark.
func (pf *Portfolio) SetPriceSource(prices PriceSource) {
	if prices != nil {
		pf.prices = prices
	}
}
