package portfolio

import "errors"

// Accounting errors. Returned errors wrap one of these with context, so
// callers should match with errors.Is.
var (
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidCommission = errors.New("invalid commission")
	ErrInvalidCash       = errors.New("invalid initial cash")
	ErrUnknownSide       = errors.New("unknown side")
	ErrQuoteUnavailable  = errors.New("quote unavailable")
)
