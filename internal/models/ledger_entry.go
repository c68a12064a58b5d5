package models

// LedgerEntry groups the records produced by booking one fill or one
// mark-to-market pass. Fill and RoundTrip are nil when not applicable.
type LedgerEntry struct {
	Fill      *Fill
	Positions []*PositionRecord
	Snapshot  *PortfolioSnapshot
	RoundTrip *RoundTrip
}
