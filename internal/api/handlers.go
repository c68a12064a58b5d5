package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-ledger/internal/database"
	"github.com/trogers1052/portfolio-ledger/internal/ledger"
	"github.com/trogers1052/portfolio-ledger/internal/models"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
)

const (
	defaultRoundTripLimit = 50
	defaultFillLimit      = 100
	defaultCurveWindow    = 30 * 24 * time.Hour
)

// Ledger is the portfolio the API reads and books fills into
type Ledger interface {
	BookFill(ctx context.Context, f models.Fill) (models.Fill, portfolio.Snapshot, error)
	MarkToMarket(ctx context.Context) (portfolio.Snapshot, error)
	Snapshot() portfolio.Snapshot
	Positions() []portfolio.Position
	Position(symbol string) (portfolio.Position, bool)
}

// Repository defines the history queries served by the API
type Repository interface {
	Ping() error
	GetEquityCurve(from, to time.Time) ([]*models.PortfolioSnapshot, error)
	GetLatestSnapshot() (*models.PortfolioSnapshot, error)
	GetFillByID(id int) (*models.Fill, error)
	GetFillsBySymbol(symbol string, limit int) ([]*models.Fill, error)
	CreatePriceDataBatch(bars []*models.PriceDataDaily) error
	GetPriceDataRange(symbol string, from, to time.Time) ([]*models.PriceDataDaily, error)
	GetRoundTripsBySymbol(symbol string, limit int) ([]*models.RoundTrip, error)
	GetRoundTripStats() (*database.RoundTripStats, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	ledger Ledger
	repo   Repository
}

// NewHandler creates a new Handler
func NewHandler(ledger Ledger, repo Repository) *Handler {
	return &Handler{
		ledger: ledger,
		repo:   repo,
	}
}

// GetPortfolio handles GET /portfolio
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ledger.Snapshot())
}

// MarkToMarket handles POST /portfolio/mark
func (h *Handler) MarkToMarket(w http.ResponseWriter, r *http.Request) {
	snap, err := h.ledger.MarkToMarket(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// GetPositions handles GET /positions
func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ledger.Positions())
}

// GetPosition handles GET /positions/{symbol}
func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	p, ok := h.ledger.Position(symbol)
	if !ok {
		http.Error(w, "position not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

type createFillRequest struct {
	OrderID    string          `json:"order_id"`
	Source     string          `json:"source"`
	Symbol     string          `json:"symbol"`
	Side       portfolio.Side  `json:"side"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	ExecutedAt *time.Time      `json:"executed_at"`
}

type createFillResponse struct {
	Fill     models.Fill        `json:"fill"`
	Snapshot portfolio.Snapshot `json:"snapshot"`
}

// CreateFill handles POST /fills
func (h *Handler) CreateFill(w http.ResponseWriter, r *http.Request) {
	var req createFillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	fill := models.Fill{
		OrderID:    req.OrderID,
		Source:     req.Source,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Quantity:   req.Quantity,
		Price:      req.Price,
		Commission: req.Commission,
	}
	if fill.OrderID == "" {
		fill.OrderID = uuid.NewString()
	}
	if fill.Source == "" {
		fill.Source = "api"
	}
	if req.ExecutedAt != nil {
		fill.ExecutedAt = *req.ExecutedAt
	}

	booked, snap, err := h.ledger.BookFill(r.Context(), fill)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, createFillResponse{Fill: booked, Snapshot: snap})
}

// GetFills handles GET /fills?symbol=&limit=
func (h *Handler) GetFills(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}
	limit, ok := parseLimit(w, r, defaultFillLimit)
	if !ok {
		return
	}

	fills, err := h.repo.GetFillsBySymbol(symbol, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fills)
}

// GetFill handles GET /fills/{id}
func (h *Handler) GetFill(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid fill id", http.StatusBadRequest)
		return
	}

	fill, err := h.repo.GetFillByID(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fill)
}

// GetEquityCurve handles GET /equity-curve?from=&to= (RFC3339, default the
// last 30 days)
func (h *Handler) GetEquityCurve(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseWindow(w, r, defaultCurveWindow)
	if !ok {
		return
	}

	curve, err := h.repo.GetEquityCurve(from, to)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, curve)
}

// GetLatestSnapshot handles GET /equity-curve/latest
func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.repo.GetLatestSnapshot()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// CreateBars handles POST /bars with a JSON array of daily bars
func (h *Handler) CreateBars(w http.ResponseWriter, r *http.Request) {
	var bars []*models.PriceDataDaily
	if err := json.NewDecoder(r.Body).Decode(&bars); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	for _, b := range bars {
		if b.Symbol == "" || b.Date.IsZero() || !b.Close.IsPositive() {
			http.Error(w, "each bar needs symbol, date and a positive close", http.StatusBadRequest)
			return
		}
	}

	if err := h.repo.CreatePriceDataBatch(bars); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int{"stored": len(bars)})
}

// GetBars handles GET /bars/{symbol}?from=&to=
func (h *Handler) GetBars(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseWindow(w, r, defaultCurveWindow)
	if !ok {
		return
	}

	bars, err := h.repo.GetPriceDataRange(mux.Vars(r)["symbol"], from, to)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bars)
}

// GetRoundTrips handles GET /round-trips/{symbol}?limit=
func (h *Handler) GetRoundTrips(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	limit, ok := parseLimit(w, r, defaultRoundTripLimit)
	if !ok {
		return
	}

	trips, err := h.repo.GetRoundTripsBySymbol(symbol, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, trips)
}

// GetRoundTripStats handles GET /round-trips/stats
func (h *Handler) GetRoundTripStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetRoundTripStats()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// parseWindow reads the from/to query parameters. A missing to is now and a
// missing from is window before to.
func parseWindow(w http.ResponseWriter, r *http.Request, window time.Duration) (time.Time, time.Time, bool) {
	to := time.Now()
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid to: "+err.Error(), http.StatusBadRequest)
			return time.Time{}, time.Time{}, false
		}
		to = t
	}

	from := to.Add(-window)
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid from: "+err.Error(), http.StatusBadRequest)
			return time.Time{}, time.Time{}, false
		}
		from = t
	}

	if from.After(to) {
		http.Error(w, "from must not be after to", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func parseLimit(w http.ResponseWriter, r *http.Request, defaultLimit int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, portfolio.ErrInvalidQuantity),
		errors.Is(err, portfolio.ErrInvalidPrice),
		errors.Is(err, portfolio.ErrInvalidCommission),
		errors.Is(err, portfolio.ErrUnknownSide):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrDuplicateFill):
		return http.StatusConflict
	case errors.Is(err, portfolio.ErrQuoteUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("Internal error: %v", err)
	}
	http.Error(w, err.Error(), status)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
