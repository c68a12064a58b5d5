package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
)

// ParseStaticQuotes reads a fixed quote table in the form
// "AMZN=564.14/565.14,GOOG=705.46". A single price is used for both sides.
func ParseStaticQuotes(s string) (portfolio.StaticPrices, error) {
	prices := portfolio.StaticPrices{}
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		symbol, quote, ok := strings.Cut(entry, "=")
		symbol = strings.TrimSpace(symbol)
		if !ok || symbol == "" {
			return nil, fmt.Errorf("invalid static quote %q", entry)
		}

		bidStr, askStr, spread := strings.Cut(quote, "/")
		if !spread {
			askStr = bidStr
		}
		bid, err := decimal.NewFromString(strings.TrimSpace(bidStr))
		if err != nil {
			return nil, fmt.Errorf("invalid bid for %s: %w", symbol, err)
		}
		ask, err := decimal.NewFromString(strings.TrimSpace(askStr))
		if err != nil {
			return nil, fmt.Errorf("invalid ask for %s: %w", symbol, err)
		}
		if bid.IsNegative() || ask.LessThan(bid) {
			return nil, fmt.Errorf("invalid static quote for %s: bid %s ask %s", symbol, bid, ask)
		}
		prices.Set(symbol, bid, ask)
	}
	return prices, nil
}
