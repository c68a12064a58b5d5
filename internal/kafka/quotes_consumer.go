package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-ledger/internal/models"
)

// QuoteStore keeps the latest quote per symbol
type QuoteStore interface {
	SetQuote(ctx context.Context, symbol string, bid, ask decimal.Decimal, ts time.Time) error
}

// QuotesConsumer copies top-of-book updates from Kafka into the quote cache
type QuotesConsumer struct {
	reader messageReader
	quotes QuoteStore
}

// NewQuotesConsumer creates a consumer for quote update events
func NewQuotesConsumer(brokers []string, topic, groupID string, quotes QuoteStore) *QuotesConsumer {
	return &QuotesConsumer{
		reader: newReader(brokers, topic, groupID),
		quotes: quotes,
	}
}

// Start begins consuming messages from Kafka
func (c *QuotesConsumer) Start(ctx context.Context) error {
	return consume(ctx, c.reader, c.processMessage)
}

func (c *QuotesConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.QuoteEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal quote event: %w", err)
	}
	if event.EventType != models.EventTypeQuoteUpdate {
		return nil
	}
	if event.Symbol == "" {
		return errors.New("quote event without symbol")
	}

	bid, err := decimal.NewFromString(event.Bid)
	if err != nil {
		return fmt.Errorf("invalid bid %s: %w", event.Bid, err)
	}
	ask, err := decimal.NewFromString(event.Ask)
	if err != nil {
		return fmt.Errorf("invalid ask %s: %w", event.Ask, err)
	}

	ts := time.Now()
	if event.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, event.Timestamp); err == nil {
			ts = parsed
		}
	}

	return c.quotes.SetQuote(ctx, event.Symbol, bid, ask, ts)
}

// Close closes the Kafka consumer
func (c *QuotesConsumer) Close() error {
	return c.reader.Close()
}
