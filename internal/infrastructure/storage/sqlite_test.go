package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/quantnse/pattern_backtest/internal/domain"
	"github.com/quantnse/pattern_backtest/internal/infrastructure/storage"
)

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSignalRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sig := &domain.Signal{
		ID:         "sig-1",
		Ticker:     "TCS",
		Date:       time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		EntryPrice: 100,
		StopLoss:   98,
		Target:     105,
		PatternID:  "TCS_CDLHAMMER_20240603_abcd1234",
		Score:      0.82,
	}
	require.NoError(t, store.SaveSignal(ctx, sig))
	require.NoError(t, store.SaveSignal(ctx, &domain.Signal{
		ID: "sig-2", Ticker: "INFY", Date: time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
		EntryPrice: 1500, StopLoss: 1470, Target: 1575,
	}))

	all, err := store.ListSignals(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "sig-1", all[0].ID) // ordered by date
	assert.InDelta(t, 0.82, all[0].Score, 1e-9)
	assert.WithinDuration(t, sig.Date, all[0].Date, time.Second)

	byTicker, err := store.ListSignalsByTicker(ctx, "INFY")
	require.NoError(t, err)
	require.Len(t, byTicker, 1)
	assert.Equal(t, "sig-2", byTicker[0].ID)
}

func TestPatternRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	hit := &domain.PatternHit{
		ID:          "TCS_CDLENGULFING_20240604_abcd1234",
		Ticker:      "TCS",
		Exchange:    "NSE",
		Pattern:     "CDLENGULFING",
		Direction:   domain.DirectionBullish,
		Date:        time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
		Confidence:  0.9,
		Close:       101,
		Volume:      80000,
		RSI14:       55.2,
		ATR14:       2.1,
		VolumeRatio: 1.8,
	}
	require.NoError(t, store.SavePattern(ctx, hit))

	hits, err := store.ListPatterns(ctx, "TCS", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, hit.ID, hits[0].ID)
	assert.Equal(t, domain.DirectionBullish, hits[0].Direction)
	assert.InDelta(t, 55.2, hits[0].RSI14, 1e-9)
	assert.InDelta(t, 1.8, hits[0].VolumeRatio, 1e-9)

	none, err := store.ListPatterns(ctx, "INFY", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRunRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	run := &domain.BacktestRun{
		ID:             "run-1",
		StartedAt:      time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt:     time.Date(2024, 7, 1, 10, 0, 5, 0, time.UTC),
		InitialCapital: 100000,
		SignalCount:    12,
		Metrics: domain.Metrics{
			TotalTrades:    8,
			WinningTrades:  5,
			LosingTrades:   3,
			WinRate:        62.5,
			TotalPnL:       1234.5,
			AvgWin:         400,
			AvgLoss:        -250,
			ProfitFactor:   2.67,
			AvgHoldingDays: 6.5,
			MaxDrawdown:    -3.2,
			FinalEquity:    101234.5,
		},
	}
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.InitialCapital, got.InitialCapital)
	assert.Equal(t, run.SignalCount, got.SignalCount)
	assert.Equal(t, run.Metrics, got.Metrics)
	assert.WithinDuration(t, run.StartedAt, got.StartedAt, time.Second)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestTradesRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	trades := []domain.Trade{
		{
			Ticker:      "TCS",
			PatternID:   "p1",
			EntryDate:   time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
			EntryPrice:  100.1,
			ExitDate:    time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
			ExitPrice:   109.89,
			Shares:      49,
			HoldingDays: 2,
			ExitReason:  domain.ExitTargetHit,
			GrossPnL:    479.71,
			Costs:       20.5,
			NetPnL:      459.21,
			NetPnLPct:   9.36,
			MaxGainPct:  10.9,
			MaxLossPct:  -1.1,
		},
		{
			Ticker:     "INFY",
			EntryDate:  time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
			ExitDate:   time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC),
			Shares:     3,
			ExitReason: domain.ExitStopHit,
		},
	}
	require.NoError(t, store.SaveTrades(ctx, "run-1", trades))

	got, err := store.ListTrades(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "TCS", got[0].Ticker)
	assert.Equal(t, domain.ExitTargetHit, got[0].ExitReason)
	assert.InDelta(t, 459.21, got[0].NetPnL, 1e-9)
	assert.Equal(t, domain.ExitStopHit, got[1].ExitReason)

	other, err := store.ListTrades(ctx, "run-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestEquityCurveRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	points := []domain.EquityPoint{
		{Date: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Equity: 100000},
		{Date: time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), Equity: 100150},
	}
	require.NoError(t, store.SaveEquityCurve(ctx, "run-1", points))

	got, err := store.ListEquityCurve(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 100000.0, got[0].Equity, 1e-9)
	assert.InDelta(t, 100150.0, got[1].Equity, 1e-9)
	assert.WithinDuration(t, points[0].Date, got[0].Date, time.Second)
}
