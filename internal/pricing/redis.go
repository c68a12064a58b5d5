// Package pricing provides the quote sources the portfolio marks positions
// against: a Redis top-of-book cache fed from Kafka, daily bars stored in
// PostgreSQL, and a chain that falls back from one to the next.
package pricing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
)

// RedisConfig holds connection parameters for the quote cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection with a ping.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// QuoteCache stores the latest bid/ask per symbol as a Redis hash at
// "quote:{symbol}" with fields bid, ask and ts (unix nanoseconds).
type QuoteCache struct {
	rdb    *redis.Client
	maxAge time.Duration
}

// NewQuoteCache creates a QuoteCache. Quotes older than maxAge are treated
// as unavailable; zero disables the check.
func NewQuoteCache(rdb *redis.Client, maxAge time.Duration) *QuoteCache {
	return &QuoteCache{rdb: rdb, maxAge: maxAge}
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

// SetQuote stores the latest bid and ask for symbol.
func (c *QuoteCache) SetQuote(ctx context.Context, symbol string, bid, ask decimal.Decimal, ts time.Time) error {
	if bid.IsNegative() || ask.IsNegative() || ask.LessThan(bid) {
		return fmt.Errorf("invalid quote for %s: bid %s ask %s", symbol, bid, ask)
	}
	fields := map[string]interface{}{
		"bid": bid.String(),
		"ask": ask.String(),
		"ts":  strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := c.rdb.HSet(ctx, quoteKey(symbol), fields).Err(); err != nil {
		return fmt.Errorf("failed to set quote %s: %w", symbol, err)
	}
	return nil
}

// BestBidAsk implements portfolio.PriceSource.
func (c *QuoteCache) BestBidAsk(ctx context.Context, symbol string) (decimal.Decimal, decimal.Decimal, error) {
	vals, err := c.rdb.HGetAll(ctx, quoteKey(symbol)).Result()
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to get quote %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: no cached quote", portfolio.ErrQuoteUnavailable)
	}

	bid, err := decimal.NewFromString(vals["bid"])
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to parse bid for %s: %w", symbol, err)
	}
	ask, err := decimal.NewFromString(vals["ask"])
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to parse ask for %s: %w", symbol, err)
	}

	if c.maxAge > 0 {
		tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
		if err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("failed to parse ts for %s: %w", symbol, err)
		}
		if age := time.Since(time.Unix(0, tsNano)); age > c.maxAge {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: quote is %s old", portfolio.ErrQuoteUnavailable, age.Round(time.Second))
		}
	}

	return bid, ask, nil
}

var _ portfolio.PriceSource = (*QuoteCache)(nil)
