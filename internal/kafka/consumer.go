package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-ledger/internal/ledger"
	"github.com/trogers1052/portfolio-ledger/internal/models"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
)

var maxQuantity = decimal.NewFromInt(math.MaxInt64)

// messageReader is the subset of *kafka.Reader the consumers use
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// FillApplier books fills against the portfolio
type FillApplier interface {
	ApplyFill(ctx context.Context, f models.Fill) (portfolio.Snapshot, error)
}

// Consumer books fill events from Kafka into the ledger
type Consumer struct {
	reader messageReader
	ledger FillApplier
}

func newReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})
}

// NewConsumer creates a new Kafka consumer for fill events
func NewConsumer(brokers []string, topic, groupID string, ledger FillApplier) *Consumer {
	return &Consumer{
		reader: newReader(brokers, topic, groupID),
		ledger: ledger,
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	return consume(ctx, c.reader, c.processMessage)
}

// consume reads until ctx is cancelled. Messages that fail to process are
// logged and skipped.
func consume(ctx context.Context, reader messageReader, process func(context.Context, kafka.Message) error) error {
	log.Printf("Starting Kafka consumer for topic: %s", reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Kafka consumer for %s shutting down...", reader.Config().Topic)
			return reader.Close()
		default:
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue // shutdown handled above
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			if err := process(ctx, msg); err != nil {
				log.Printf("Error processing message at partition %d offset %d: %v",
					msg.Partition, msg.Offset, err)
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.FillEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal fill event: %w", err)
	}

	if event.EventType != models.EventTypeTradeDetected && event.EventType != models.EventTypeFill {
		log.Printf("Ignoring event type: %s", event.EventType)
		return nil
	}

	fill, err := convertEventToFill(event)
	if err != nil {
		return fmt.Errorf("failed to convert event to fill: %w", err)
	}

	snap, err := c.ledger.ApplyFill(ctx, *fill)
	if errors.Is(err, ledger.ErrDuplicateFill) {
		log.Printf("Fill %s from %s already booked, skipping", fill.OrderID, fill.Source)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to book fill %s: %w", fill.OrderID, err)
	}

	log.Printf("Booked fill: %s %d %s @ %s (order_id: %s) equity=%s",
		fill.Side, fill.Quantity, fill.Symbol, fill.Price, fill.OrderID, snap.Equity)
	return nil
}

// convertEventToFill maps a FillEvent to a Fill. Quantities must be whole
// units.
func convertEventToFill(event models.FillEvent) (*models.Fill, error) {
	data := event.Data

	if data.Symbol == "" {
		return nil, errors.New("missing symbol")
	}

	side, err := portfolio.ParseSide(data.Side)
	if err != nil {
		return nil, err
	}

	qty, err := decimal.NewFromString(data.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %s: %w", data.Quantity, err)
	}
	if !qty.IsInteger() {
		return nil, fmt.Errorf("%w: fractional quantity %s", portfolio.ErrInvalidQuantity, data.Quantity)
	}
	if !qty.IsPositive() || qty.GreaterThan(maxQuantity) {
		return nil, fmt.Errorf("%w: quantity %s out of range", portfolio.ErrInvalidQuantity, data.Quantity)
	}

	price, err := decimal.NewFromString(data.AveragePrice)
	if err != nil {
		return nil, fmt.Errorf("invalid price %s: %w", data.AveragePrice, err)
	}

	fees := decimal.Zero
	if data.Fees != "" {
		fees, err = decimal.NewFromString(data.Fees)
		if err != nil {
			return nil, fmt.Errorf("invalid fees %s: %w", data.Fees, err)
		}
	}

	// A zero time is stamped by the ledger when the fill is booked.
	var executedAt time.Time
	if data.ExecutedAt != nil && *data.ExecutedAt != "" {
		executedAt, err = time.Parse(time.RFC3339, *data.ExecutedAt)
		if err != nil {
			// Try parsing without timezone
			executedAt, err = time.Parse("2006-01-02T15:04:05", *data.ExecutedAt)
			if err != nil {
				return nil, fmt.Errorf("invalid executed_at %s: %w", *data.ExecutedAt, err)
			}
		}
	}

	return &models.Fill{
		OrderID:    data.OrderID,
		Source:     event.Source,
		Symbol:     data.Symbol,
		Side:       side,
		Quantity:   qty.IntPart(),
		Price:      price,
		Commission: fees,
		ExecutedAt: executedAt,
	}, nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
