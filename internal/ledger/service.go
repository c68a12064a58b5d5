// Package ledger books fills against a portfolio and keeps the persisted
// ledger (fills, positions, equity curve, round trips) in step with it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-ledger/internal/models"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
)

// Snapshot reasons recorded on the equity curve
const (
	ReasonFill = "fill"
	ReasonMark = "mark"
)

// ErrDuplicateFill is returned when a fill with the same order id and source
// has already been booked.
var ErrDuplicateFill = errors.New("fill already booked")

// Store defines the persistence the ledger needs
type Store interface {
	FillExistsByOrderID(orderID, source string) (bool, error)
	RecordLedgerEntry(e *models.LedgerEntry) error
	GetAllFills() ([]*models.Fill, error)
	ReplaceAllPositions(positions []*models.PositionRecord) error
}

// Publisher broadcasts portfolio snapshots
type Publisher interface {
	PublishSnapshot(ctx context.Context, event *models.SnapshotEvent) error
}

// Config holds the ledger settings
type Config struct {
	PortfolioID string
	InitialCash decimal.Decimal
}

// Service serialises every read and write of one portfolio.
type Service struct {
	mu     sync.Mutex
	pf     *portfolio.Portfolio
	trips  map[string]*openTrip
	prices portfolio.PriceSource

	store     Store
	publisher Publisher
	cfg       Config
	now       func() time.Time
}

// NewService creates a ledger over an empty portfolio holding the initial
// cash. publisher may be nil.
func NewService(store Store, prices portfolio.PriceSource, publisher Publisher, cfg Config) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	pf, err := portfolio.New(prices, cfg.InitialCash)
	if err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}
	return &Service{
		pf:        pf,
		trips:     make(map[string]*openTrip),
		prices:    prices,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

// ApplyFill books f, persists the resulting ledger entry and publishes the
// new snapshot. The in-memory portfolio only changes once the entry is
// stored.
func (s *Service) ApplyFill(ctx context.Context, f models.Fill) (portfolio.Snapshot, error) {
	_, snap, err := s.BookFill(ctx, f)
	return snap, err
}

// BookFill is ApplyFill returning the fill as stored, with its ID and
// execution time filled in.
func (s *Service) BookFill(ctx context.Context, f models.Fill) (models.Fill, portfolio.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.OrderID != "" {
		exists, err := s.store.FillExistsByOrderID(f.OrderID, f.Source)
		if err != nil {
			return f, portfolio.Snapshot{}, fmt.Errorf("failed to check for duplicate fill: %w", err)
		}
		if exists {
			return f, s.pf.Snapshot(), fmt.Errorf("%w: order %s from %s", ErrDuplicateFill, f.OrderID, f.Source)
		}
	}
	if f.ExecutedAt.IsZero() {
		f.ExecutedAt = s.now()
	}

	working := s.pf.Clone()
	before, _ := working.Position(f.Symbol)
	if err := working.Apply(ctx, f.Transaction()); err != nil {
		return f, portfolio.Snapshot{}, err
	}
	after, _ := working.Position(f.Symbol)
	trip, closed := advanceTrip(s.trips[f.Symbol], before, after, f.ExecutedAt)

	snap := working.Snapshot()
	entry := &models.LedgerEntry{
		Fill:      &f,
		Positions: positionRecords(working),
		Snapshot:  models.NewPortfolioSnapshot(snap, ReasonFill, f.ExecutedAt),
		RoundTrip: closed,
	}
	if err := s.store.RecordLedgerEntry(entry); err != nil {
		return f, portfolio.Snapshot{}, fmt.Errorf("failed to record fill %s: %w", f.OrderID, err)
	}

	s.pf = working
	s.setTrip(f.Symbol, trip)
	if closed != nil {
		log.Printf("Closed %s round trip on %s: %d fills, realized %s",
			closed.Direction, closed.Symbol, closed.Fills, closed.RealizedPnl)
	}

	s.publish(ctx, entry.Snapshot)
	return f, snap, nil
}

// MarkToMarket re-quotes every open position and records the result on the
// equity curve.
func (s *Service) MarkToMarket(ctx context.Context) (portfolio.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.pf.Clone()
	if err := working.MarkToMarket(ctx); err != nil {
		return portfolio.Snapshot{}, err
	}

	snap := working.Snapshot()
	entry := &models.LedgerEntry{
		Positions: positionRecords(working),
		Snapshot:  models.NewPortfolioSnapshot(snap, ReasonMark, s.now()),
	}
	if err := s.store.RecordLedgerEntry(entry); err != nil {
		return portfolio.Snapshot{}, fmt.Errorf("failed to record mark: %w", err)
	}

	s.pf = working
	s.publish(ctx, entry.Snapshot)
	return snap, nil
}

// Replay rebuilds the portfolio from every stored fill in execution order.
// Fills are booked against their own prices, then the result is marked with
// the live price source; if that mark fails the positions keep their last
// fill marks. The stored positions are rewritten to match; fills, snapshots
// and round trips are left as they are.
func (s *Service) Replay(ctx context.Context) (int, error) {
	fills, err := s.store.GetAllFills()
	if err != nil {
		return 0, fmt.Errorf("failed to load fills: %w", err)
	}

	marks := portfolio.StaticPrices{}
	pf, err := portfolio.New(marks, s.cfg.InitialCash)
	if err != nil {
		return 0, fmt.Errorf("failed to create portfolio: %w", err)
	}
	trips := make(map[string]*openTrip)

	for _, f := range fills {
		marks.Set(f.Symbol, f.Price, f.Price)
		before, _ := pf.Position(f.Symbol)
		if err := pf.Apply(ctx, f.Transaction()); err != nil {
			return 0, fmt.Errorf("failed to replay fill %d (%s): %w", f.ID, f.OrderID, err)
		}
		after, _ := pf.Position(f.Symbol)
		if trip, _ := advanceTrip(trips[f.Symbol], before, after, f.ExecutedAt); trip != nil {
			trips[f.Symbol] = trip
		} else {
			delete(trips, f.Symbol)
		}
	}

	pf.SetPriceSource(s.prices)
	if err := pf.MarkToMarket(ctx); err != nil {
		log.Printf("Replayed positions keep their fill marks: %v", err)
	}
	if err := s.store.ReplaceAllPositions(positionRecords(pf)); err != nil {
		return 0, fmt.Errorf("failed to store replayed positions: %w", err)
	}

	s.mu.Lock()
	s.pf = pf
	s.trips = trips
	s.mu.Unlock()

	return len(fills), nil
}

// Snapshot returns the portfolio aggregates as of the last fill or mark.
func (s *Service) Snapshot() portfolio.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pf.Snapshot()
}

// Positions returns every position ever held, ordered by symbol.
func (s *Service) Positions() []portfolio.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pf.Positions()
}

// Position returns the position for symbol.
func (s *Service) Position(symbol string) (portfolio.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pf.Position(symbol)
}

func (s *Service) setTrip(symbol string, trip *openTrip) {
	if trip == nil {
		delete(s.trips, symbol)
		return
	}
	s.trips[symbol] = trip
}

// publish is best effort: the entry is already stored.
func (s *Service) publish(ctx context.Context, snap *models.PortfolioSnapshot) {
	if s.publisher == nil {
		return
	}
	event := &models.SnapshotEvent{
		EventType:   models.EventTypePortfolioSnapshot,
		PortfolioID: s.cfg.PortfolioID,
		Snapshot:    snap,
		Timestamp:   s.now(),
	}
	if err := s.publisher.PublishSnapshot(ctx, event); err != nil {
		log.Printf("Failed to publish portfolio snapshot: %v", err)
	}
}

func positionRecords(pf *portfolio.Portfolio) []*models.PositionRecord {
	positions := pf.Positions()
	records := make([]*models.PositionRecord, 0, len(positions))
	for _, p := range positions {
		records = append(records, models.NewPositionRecord(p))
	}
	return records
}
