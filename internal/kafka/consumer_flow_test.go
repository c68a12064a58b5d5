package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-ledger/internal/ledger"
	"github.com/trogers1052/portfolio-ledger/internal/models"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
)

// memoryStore keeps ledger entries in memory
type memoryStore struct {
	fills      []*models.Fill
	roundTrips []*models.RoundTrip
}

func (m *memoryStore) FillExistsByOrderID(orderID, source string) (bool, error) {
	for _, f := range m.fills {
		if f.OrderID == orderID && f.Source == source {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) RecordLedgerEntry(e *models.LedgerEntry) error {
	if e.Fill != nil {
		m.fills = append(m.fills, e.Fill)
	}
	if e.RoundTrip != nil {
		m.roundTrips = append(m.roundTrips, e.RoundTrip)
	}
	return nil
}

func (m *memoryStore) GetAllFills() ([]*models.Fill, error) {
	return m.fills, nil
}

func (m *memoryStore) ReplaceAllPositions([]*models.PositionRecord) error {
	return nil
}

// TestBrokerSessionThroughKafka books a demo-account session, delivered as
// broker-coded fill events, and checks the ledger against the broker's
// closing figures.
func TestBrokerSessionThroughKafka(t *testing.T) {
	ctx := context.Background()

	prices := portfolio.StaticPrices{}
	prices.Set("GOOG", decimal.RequireFromString("705.46"), decimal.RequireFromString("705.46"))
	prices.Set("AMZN", decimal.RequireFromString("564.14"), decimal.RequireFromString("565.14"))

	store := &memoryStore{}
	svc, err := ledger.NewService(store, prices, nil, ledger.Config{
		PortfolioID: "demo",
		InitialCash: decimal.RequireFromString("500000.00"),
	})
	require.NoError(t, err)
	consumer := &Consumer{ledger: svc}

	session := []struct {
		side, symbol, quantity, price, fees, executedAt string
	}{
		{"BOT", "AMZN", "100", "566.56", "1.00", "2016-01-05T15:31:00Z"},
		{"BOT", "AMZN", "200", "566.395", "1.00", "2016-01-05T15:32:00Z"},
		{"BOT", "GOOG", "200", "707.50", "1.00", "2016-01-05T15:33:00Z"},
		{"SLD", "AMZN", "100", "565.83", "1.00", "2016-01-05T15:34:00Z"},
		{"BOT", "GOOG", "200", "705.545", "1.00", "2016-01-05T15:35:00Z"},
		{"SLD", "AMZN", "200", "565.59", "1.00", "2016-01-05T15:36:00Z"},
		{"SLD", "GOOG", "100", "704.92", "1.00", "2016-01-05T15:37:00Z"},
		{"SLD", "GOOG", "100", "704.90", "", "2016-01-05T15:38:00Z"},
		{"SLD", "GOOG", "100", "704.92", "0.50", "2016-01-05T15:39:00Z"},
		{"SLD", "GOOG", "100", "704.78", "1.00", "2016-01-05T15:40:00Z"},
	}

	for i, s := range session {
		event := models.FillEvent{
			EventType: models.EventTypeTradeDetected,
			Source:    "ib-demo",
			Data: models.FillEventData{
				OrderID:      fmt.Sprintf("ib-%d", i+1),
				Symbol:       s.symbol,
				Side:         s.side,
				Quantity:     s.quantity,
				AveragePrice: s.price,
				Fees:         s.fees,
				ExecutedAt:   strPtr(s.executedAt),
			},
		}
		payload, err := json.Marshal(event)
		require.NoError(t, err)
		msg := kafka.Message{Value: payload}

		require.NoError(t, consumer.processMessage(ctx, msg), "fill %d", i+1)
		// redelivery after a rebalance
		require.NoError(t, consumer.processMessage(ctx, msg), "redelivered fill %d", i+1)
	}

	assert.Len(t, store.fills, 10)

	snap := svc.Snapshot()
	assert.True(t, decimal.RequireFromString("499100.50").Equal(snap.Cash), "cash %s", snap.Cash)
	assert.True(t, decimal.RequireFromString("499100.50").Equal(snap.Equity), "equity %s", snap.Equity)
	assert.True(t, decimal.RequireFromString("-899.50").Equal(snap.RealisedPnL), "realised %s", snap.RealisedPnL)
	assert.True(t, decimal.RequireFromString("8.50").Equal(snap.TotalCommission))

	require.Len(t, store.roundTrips, 2)
	assert.Equal(t, "AMZN", store.roundTrips[0].Symbol)
	assert.True(t, decimal.RequireFromString("-238").Equal(store.roundTrips[0].RealizedPnl))
	assert.Equal(t, "GOOG", store.roundTrips[1].Symbol)
	assert.True(t, decimal.RequireFromString("-661.5").Equal(store.roundTrips[1].RealizedPnl))
}
