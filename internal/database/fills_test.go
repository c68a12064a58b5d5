package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-ledger/internal/models"
	"github.com/trogers1052/portfolio-ledger/internal/portfolio"
)

var fillRowColumns = []string{
	"id", "order_id", "source", "symbol", "side", "quantity", "price", "commission", "executed_at", "created_at",
}

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return &DB{conn: sqlDB}, mock
}

func TestCreateFill(t *testing.T) {
	db, mock := newMockDB(t)
	executedAt := time.Date(2016, 3, 1, 14, 30, 0, 0, time.UTC)

	fill := &models.Fill{
		OrderID:    "ib-1001",
		Source:     "ib",
		Symbol:     "AMZN",
		Side:       portfolio.Buy,
		Quantity:   100,
		Price:      decimal.RequireFromString("566.56"),
		Commission: decimal.RequireFromString("1.00"),
		ExecutedAt: executedAt,
	}

	mock.ExpectQuery("INSERT INTO fills").
		WithArgs("ib-1001", "ib", "AMZN", "BUY", int64(100), sqlmock.AnyArg(), sqlmock.AnyArg(), executedAt, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	require.NoError(t, db.CreateFill(fill))
	assert.Equal(t, 7, fill.ID)
	assert.Equal(t, executedAt, fill.ExecutedAt)
	assert.False(t, fill.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFillExistsByOrderID(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("ib-1001", "ib").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := db.FillExistsByOrderID("ib-1001", "ib")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllFills(t *testing.T) {
	db, mock := newMockDB(t)
	t0 := time.Date(2016, 3, 1, 14, 30, 0, 0, time.UTC)

	mock.ExpectQuery("FROM fills ORDER BY executed_at ASC").
		WillReturnRows(sqlmock.NewRows(fillRowColumns).
			AddRow(1, "a", "ib", "AMZN", "BUY", int64(100), "566.56", "1.00", t0, t0).
			AddRow(2, "b", "ib", "AMZN", "SELL", int64(100), "565.83", "1.00", t0.Add(time.Hour), t0))

	fills, err := db.GetAllFills()
	require.NoError(t, err)
	require.Len(t, fills, 2)

	assert.Equal(t, portfolio.Buy, fills[0].Side)
	assert.Equal(t, portfolio.Sell, fills[1].Side)
	assert.Equal(t, int64(100), fills[1].Quantity)
	assert.True(t, decimal.RequireFromString("565.83").Equal(fills[1].Price))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllFills_rejectsUnknownSide(t *testing.T) {
	db, mock := newMockDB(t)
	t0 := time.Now()

	mock.ExpectQuery("FROM fills").
		WillReturnRows(sqlmock.NewRows(fillRowColumns).
			AddRow(1, "a", "ib", "AMZN", "HOLD", int64(100), "1", "0", t0, t0))

	_, err := db.GetAllFills()
	require.Error(t, err)
	assert.ErrorIs(t, err, portfolio.ErrUnknownSide)
}

func TestGetFillByID_notFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("FROM fills WHERE id").
		WithArgs(42).
		WillReturnError(sql.ErrNoRows)

	_, err := db.GetFillByID(42)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFillsRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("CreateFill and GetAllFills keep booking order", func(t *testing.T) {
		testDB.TruncateAll(t)

		base := time.Date(2016, 3, 1, 14, 30, 0, 0, time.UTC)
		fills := []*models.Fill{
			{OrderID: "2", Source: "ib", Symbol: "AMZN", Side: portfolio.Sell, Quantity: 100, Price: decimal.RequireFromString("565.83"), Commission: decimal.RequireFromString("1"), ExecutedAt: base.Add(time.Hour)},
			{OrderID: "1", Source: "ib", Symbol: "AMZN", Side: portfolio.Buy, Quantity: 100, Price: decimal.RequireFromString("566.56"), Commission: decimal.RequireFromString("1"), ExecutedAt: base},
		}
		for _, f := range fills {
			require.NoError(t, testDB.CreateFill(f))
			assert.NotZero(t, f.ID)
		}

		all, err := testDB.GetAllFills()
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "1", all[0].OrderID)
		assert.Equal(t, portfolio.Buy, all[0].Side)
		assert.Equal(t, "2", all[1].OrderID)
	})

	t.Run("duplicate order ids are rejected", func(t *testing.T) {
		testDB.TruncateAll(t)

		f := &models.Fill{OrderID: "dup", Source: "ib", Symbol: "GOOG", Side: portfolio.Buy, Quantity: 1, Price: decimal.NewFromInt(700)}
		require.NoError(t, testDB.CreateFill(f))

		exists, err := testDB.FillExistsByOrderID("dup", "ib")
		require.NoError(t, err)
		assert.True(t, exists)

		again := *f
		require.Error(t, testDB.CreateFill(&again))
	})

	t.Run("GetFillsBySymbol filters and limits", func(t *testing.T) {
		testDB.TruncateAll(t)

		for i, sym := range []string{"GOOG", "AMZN", "GOOG", "GOOG"} {
			f := &models.Fill{OrderID: string(rune('a' + i)), Source: "ib", Symbol: sym, Side: portfolio.Buy, Quantity: 10, Price: decimal.NewFromInt(10)}
			require.NoError(t, testDB.CreateFill(f))
		}

		fills, err := testDB.GetFillsBySymbol("GOOG", 2)
		require.NoError(t, err)
		assert.Len(t, fills, 2)
		for _, f := range fills {
			assert.Equal(t, "GOOG", f.Symbol)
		}
	})
}
