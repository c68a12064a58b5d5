package portfolio

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(expected).Equal(actual), append([]interface{}{"expected %s, got %s", expected, actual.String()}, msgAndArgs...)...)
}

func TestPosition_Transact(t *testing.T) {
	t.Run("single buy sets average bought price", func(t *testing.T) {
		p := NewPosition("AMZN")
		require.NoError(t, p.Transact(Buy, 100, d("566.56"), d("1.00")))

		assert.Equal(t, int64(100), p.Quantity)
		assert.Equal(t, int64(100), p.BuyQuantity)
		assert.Equal(t, int64(0), p.SellQuantity)
		assertDecimal(t, "56656", p.BuyCost)
		assertDecimal(t, "566.56", p.AvgBoughtPrice)
		assertDecimal(t, "0", p.AvgSoldPrice)
		assertDecimal(t, "1", p.TotalCommission)
		// nothing matched yet, only commission is realised
		assertDecimal(t, "-1", p.RealisedPnL)
	})

	t.Run("buys accumulate into a volume weighted average", func(t *testing.T) {
		p := NewPosition("AMZN")
		require.NoError(t, p.Transact(Buy, 100, d("566.56"), d("1.00")))
		require.NoError(t, p.Transact(Buy, 200, d("566.395"), d("1.00")))

		assert.Equal(t, int64(300), p.Quantity)
		assertDecimal(t, "169935", p.BuyCost)
		assertDecimal(t, "566.45", p.AvgBoughtPrice)
		assertDecimal(t, "2", p.TotalCommission)
	})

	t.Run("realised pnl covers matched quantity only", func(t *testing.T) {
		p := NewPosition("XYZ")
		require.NoError(t, p.Transact(Buy, 100, d("10"), d("1")))
		require.NoError(t, p.Transact(Sell, 40, d("12"), d("1")))

		assert.Equal(t, int64(60), p.Quantity)
		assert.Equal(t, int64(40), p.MatchedQuantity())
		assertDecimal(t, "78", p.RealisedPnL)
	})

	t.Run("round trip at the same price without commission realises nothing", func(t *testing.T) {
		p := NewPosition("XYZ")
		require.NoError(t, p.Transact(Buy, 250, d("41.37"), decimal.Zero))
		require.NoError(t, p.Transact(Sell, 250, d("41.37"), decimal.Zero))

		assert.True(t, p.IsFlat())
		assertDecimal(t, "0", p.RealisedPnL)
	})

	t.Run("selling through zero flips to short", func(t *testing.T) {
		p := NewPosition("XYZ")
		require.NoError(t, p.Transact(Buy, 100, d("10"), decimal.Zero))
		require.NoError(t, p.Transact(Sell, 150, d("12"), decimal.Zero))

		assert.Equal(t, int64(-50), p.Quantity)
		assert.Equal(t, int64(50), p.OpenQuantity())
		assert.Equal(t, int64(100), p.MatchedQuantity())
		assertDecimal(t, "200", p.RealisedPnL)
	})

	t.Run("sides keep accumulating across round trips", func(t *testing.T) {
		p := NewPosition("XYZ")
		require.NoError(t, p.Transact(Buy, 10, d("10"), decimal.Zero))
		require.NoError(t, p.Transact(Sell, 10, d("11"), decimal.Zero))
		require.NoError(t, p.Transact(Buy, 10, d("20"), decimal.Zero))
		require.NoError(t, p.Transact(Sell, 10, d("22"), decimal.Zero))

		assertDecimal(t, "15", p.AvgBoughtPrice)
		assertDecimal(t, "16.5", p.AvgSoldPrice)
		assertDecimal(t, "30", p.RealisedPnL)
	})
}

func TestPosition_Transact_nonTerminatingAveragesCloseExactly(t *testing.T) {
	p := NewPosition("XYZ")
	require.NoError(t, p.Transact(Buy, 1, d("1"), decimal.Zero))
	require.NoError(t, p.Transact(Buy, 2, d("2"), decimal.Zero))

	// 5/3 does not terminate, the average is only reported
	assert.False(t, p.AvgBoughtPrice.Mul(d("3")).Equal(d("5")))

	p.UpdateMarketValue(d("2"), d("2"))
	assertDecimal(t, "1", p.UnrealisedPnL)

	require.NoError(t, p.Transact(Sell, 3, d("2"), decimal.Zero))
	assert.True(t, p.IsFlat())
	assertDecimal(t, "1", p.RealisedPnL)
}

func TestPosition_UpdateMarketValue_shortWithNonTerminatingAverage(t *testing.T) {
	p := NewPosition("XYZ")
	require.NoError(t, p.Transact(Sell, 1, d("1"), decimal.Zero))
	require.NoError(t, p.Transact(Sell, 2, d("2"), decimal.Zero))
	p.UpdateMarketValue(d("1"), d("1"))

	assertDecimal(t, "-3", p.MarketValue)
	assertDecimal(t, "2", p.UnrealisedPnL)
}

func TestPosition_Transact_rejectsInvalidFills(t *testing.T) {
	tests := []struct {
		name       string
		side       Side
		quantity   int64
		price      string
		commission string
		want       error
	}{
		{"zero quantity", Buy, 0, "10", "0", ErrInvalidQuantity},
		{"negative quantity", Sell, -5, "10", "0", ErrInvalidQuantity},
		{"zero price", Buy, 10, "0", "0", ErrInvalidPrice},
		{"negative price", Sell, 10, "-1.5", "0", ErrInvalidPrice},
		{"negative commission", Buy, 10, "10", "-0.01", ErrInvalidCommission},
		{"zero side", Side(0), 10, "10", "0", ErrUnknownSide},
		{"out of range side", Side(7), 10, "10", "0", ErrUnknownSide},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPosition("XYZ")
			require.NoError(t, p.Transact(Buy, 5, d("9"), d("1")))
			before := *p

			err := p.Transact(tt.side, tt.quantity, d(tt.price), d(tt.commission))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, *p, "position must not change on error")
		})
	}
}

func TestPosition_Transact_zeroCommissionIsValid(t *testing.T) {
	p := NewPosition("XYZ")
	require.NoError(t, p.Transact(Buy, 1, d("1"), decimal.Zero))
	assertDecimal(t, "0", p.TotalCommission)
}

func TestPosition_Transact_invariantsHoldOverRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	p := NewPosition("XYZ")
	prevCommission := decimal.Zero

	for i := 0; i < 500; i++ {
		side := Buy
		if rng.Intn(2) == 0 {
			side = Sell
		}
		qty := int64(rng.Intn(500) + 1)
		price := decimal.NewFromInt(int64(rng.Intn(10000) + 1)).Div(decimal.NewFromInt(100))
		commission := decimal.NewFromInt(int64(rng.Intn(300))).Div(decimal.NewFromInt(100))

		require.NoError(t, p.Transact(side, qty, price, commission))

		require.Equal(t, p.BuyQuantity-p.SellQuantity, p.Quantity, "step %d", i)
		require.True(t, p.TotalCommission.GreaterThanOrEqual(prevCommission), "step %d", i)
		require.GreaterOrEqual(t, p.BuyQuantity, int64(0))
		require.GreaterOrEqual(t, p.SellQuantity, int64(0))
		prevCommission = p.TotalCommission
	}
}

func TestPosition_UpdateMarketValue(t *testing.T) {
	t.Run("long marks at bid", func(t *testing.T) {
		p := NewPosition("XYZ")
		require.NoError(t, p.Transact(Buy, 100, d("10"), decimal.Zero))
		p.UpdateMarketValue(d("11"), d("12"))

		assertDecimal(t, "1100", p.MarketValue)
		assertDecimal(t, "100", p.UnrealisedPnL)
	})

	t.Run("short marks at ask", func(t *testing.T) {
		p := NewPosition("XYZ")
		require.NoError(t, p.Transact(Sell, 100, d("10"), decimal.Zero))
		p.UpdateMarketValue(d("8"), d("9"))

		assertDecimal(t, "-900", p.MarketValue)
		assertDecimal(t, "100", p.UnrealisedPnL)
	})

	t.Run("only open quantity is marked after a flip", func(t *testing.T) {
		p := NewPosition("XYZ")
		require.NoError(t, p.Transact(Buy, 100, d("10"), decimal.Zero))
		require.NoError(t, p.Transact(Sell, 150, d("12"), decimal.Zero))
		p.UpdateMarketValue(d("10.5"), d("11"))

		assertDecimal(t, "-550", p.MarketValue)
		assertDecimal(t, "50", p.UnrealisedPnL)
	})

	t.Run("flat position is worth nothing", func(t *testing.T) {
		p := NewPosition("XYZ")
		require.NoError(t, p.Transact(Buy, 100, d("10"), decimal.Zero))
		require.NoError(t, p.Transact(Sell, 100, d("10"), decimal.Zero))
		p.UpdateMarketValue(d("50"), d("51"))

		assertDecimal(t, "0", p.MarketValue)
		assertDecimal(t, "0", p.UnrealisedPnL)
	})
}

func TestPosition_Clone(t *testing.T) {
	p := NewPosition("XYZ")
	require.NoError(t, p.Transact(Buy, 10, d("10"), decimal.Zero))

	c := p.Clone()
	require.NoError(t, c.Transact(Buy, 10, d("20"), decimal.Zero))

	assert.Equal(t, int64(10), p.Quantity)
	assertDecimal(t, "10", p.AvgBoughtPrice)
	assert.Equal(t, int64(20), c.Quantity)
}
