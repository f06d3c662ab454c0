package usecase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/quantnse/pattern_backtest/internal/domain"
	"github.com/quantnse/pattern_backtest/internal/usecase"
)

type staticBars map[string][]domain.Bar

func (s staticBars) Bars(ticker string) ([]domain.Bar, bool) {
	bars, ok := s[ticker]
	return bars, ok
}

func (s staticBars) Tickers() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	return out
}

func testConfig() usecase.Config {
	cfg := usecase.DefaultConfig()
	cfg.InitialCapital = 100000
	cfg.PositionSize = 0.05
	cfg.MaxPositions = 1
	cfg.SlippagePct = 0.001
	cfg.MaxHoldingDays = 20
	return cfg
}

func newEngine(t *testing.T, cfg usecase.Config) *usecase.BacktestEngine {
	t.Helper()
	engine, err := usecase.NewBacktestEngine(cfg, usecase.NewTradingCalendar(nil), nil)
	require.NoError(t, err)
	return engine
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*usecase.Config)
	}{
		{"zero capital", func(c *usecase.Config) { c.InitialCapital = 0 }},
		{"negative capital", func(c *usecase.Config) { c.InitialCapital = -1 }},
		{"zero position size", func(c *usecase.Config) { c.PositionSize = 0 }},
		{"position size above one", func(c *usecase.Config) { c.PositionSize = 1.5 }},
		{"zero max positions", func(c *usecase.Config) { c.MaxPositions = 0 }},
		{"zero holding days", func(c *usecase.Config) { c.MaxHoldingDays = 0 }},
		{"negative slippage", func(c *usecase.Config) { c.SlippagePct = -0.01 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := usecase.DefaultConfig()
			tt.mutate(&cfg)
			_, err := usecase.NewBacktestEngine(cfg, nil, nil)
			assert.Error(t, err)
		})
	}
}

func TestApplySlippage(t *testing.T) {
	engine := newEngine(t, testConfig())

	assert.InDelta(t, 100.1, engine.ApplySlippage(100, usecase.SideBuy), 1e-9)
	assert.InDelta(t, 99.9, engine.ApplySlippage(100, usecase.SideSell), 1e-9)
}

func TestCalculatePositionSize(t *testing.T) {
	engine := newEngine(t, testConfig())

	shares, value := engine.CalculatePositionSize(100.1)
	assert.Equal(t, 49, shares) // floor(5000 / 100.1)
	assert.InDelta(t, 49*100.1, value, 1e-9)

	shares, value = engine.CalculatePositionSize(0)
	assert.Zero(t, shares)
	assert.Zero(t, value)

	// Price bigger than the per-trade budget.
	shares, _ = engine.CalculatePositionSize(6000)
	assert.Zero(t, shares)
}

func TestExecuteEntryAdmission(t *testing.T) {
	entryDate := day("2024-06-04")

	t.Run("position cap", func(t *testing.T) {
		engine := newEngine(t, testConfig())
		first := engine.ExecuteEntry("AAA", entryDate, 100, 95, 110, "")
		require.NotNil(t, first)

		second := engine.ExecuteEntry("BBB", entryDate, 100, 95, 110, "")
		assert.Nil(t, second)
		assert.Len(t, engine.OpenPositions(), 1)
	})

	t.Run("zero shares", func(t *testing.T) {
		engine := newEngine(t, testConfig())
		before := engine.Capital()

		pos := engine.ExecuteEntry("AAA", entryDate, 10000, 9500, 11000, "")
		assert.Nil(t, pos)
		assert.Equal(t, before, engine.Capital())
	})

	t.Run("insufficient capital for costs", func(t *testing.T) {
		cfg := testConfig()
		cfg.InitialCapital = 1000
		cfg.PositionSize = 1.0
		cfg.SlippagePct = 0
		engine := newEngine(t, cfg)

		// Full-capital sizing leaves nothing for the one-way costs.
		pos := engine.ExecuteEntry("AAA", entryDate, 10, 9, 12, "")
		assert.Nil(t, pos)
		assert.Equal(t, 1000.0, engine.Capital())
	})
}

func TestExecuteEntryDeductsCapital(t *testing.T) {
	engine := newEngine(t, testConfig())
	cfg := testConfig()

	pos := engine.ExecuteEntry("AAA", day("2024-06-04"), 100, 95, 110, "pat-1")
	require.NotNil(t, pos)

	assert.Equal(t, 49, pos.Shares)
	assert.InDelta(t, 100.1, pos.EntryPrice, 1e-9)
	assert.Equal(t, "pat-1", pos.PatternID)

	positionValue := 49 * 100.1
	oneWay := cfg.Costs.Calculate(positionValue, false).TotalOneWay
	assert.InDelta(t, 100000-positionValue-oneWay, engine.Capital(), 1e-6)
	assert.GreaterOrEqual(t, engine.Capital(), 0.0)
}

func TestExecuteExitRemovesPosition(t *testing.T) {
	engine := newEngine(t, testConfig())

	pos := engine.ExecuteEntry("AAA", day("2024-06-04"), 100, 95, 110, "")
	require.NotNil(t, pos)
	capitalBefore := engine.Capital()

	trade := engine.ExecuteExit(pos, day("2024-06-05"), 110, domain.ExitTargetHit)

	assert.Empty(t, engine.OpenPositions())
	assert.Equal(t, domain.ExitTargetHit, trade.ExitReason)
	assert.InDelta(t, 110*0.999, trade.ExitPrice, 1e-9)

	exitValue := float64(trade.Shares) * trade.ExitPrice
	assert.InDelta(t, capitalBefore+exitValue, engine.Capital(), 1e-6)

	// Trade P&L carries the full round-trip cost, computed on the
	// entry notional.
	entryNotional := float64(trade.Shares) * trade.EntryPrice
	roundTrip := testConfig().Costs.Calculate(entryNotional, false).TotalRoundTrip
	assert.InDelta(t, roundTrip, trade.Costs, 1e-9)
	assert.InDelta(t, trade.GrossPnL-roundTrip, trade.NetPnL, 1e-9)
}

func TestCheckExitStopBeatsTarget(t *testing.T) {
	// Bar touches both stop and target intraday: stop must win.
	pos := &domain.Position{Ticker: "AAA", EntryPrice: 100, Shares: 10, StopLoss: 96, Target: 105}
	bar := domain.Bar{Low: 95, High: 110, Close: 100}

	shouldExit, reason, price := pos.CheckExit(bar, 20)

	assert.True(t, shouldExit)
	assert.Equal(t, domain.ExitStopHit, reason)
	assert.InDelta(t, 96.0, price, 1e-9)
}

func TestCheckExitTimeStop(t *testing.T) {
	pos := &domain.Position{Ticker: "AAA", EntryPrice: 100, Shares: 10, StopLoss: 90, Target: 120, DaysHeld: 20}
	bar := domain.Bar{Low: 99, High: 101, Close: 100.5}

	shouldExit, reason, price := pos.CheckExit(bar, 20)

	assert.True(t, shouldExit)
	assert.Equal(t, domain.ExitTimeStop, reason)
	assert.InDelta(t, 100.5, price, 1e-9)
}

func TestPositionUpdateTracksExcursions(t *testing.T) {
	pos := &domain.Position{Ticker: "AAA", EntryPrice: 100, Shares: 10}

	pos.Update(domain.Bar{High: 104, Low: 98, Close: 103})
	assert.Equal(t, 1, pos.DaysHeld)
	assert.InDelta(t, 4.0, pos.MaxGainPct, 1e-9)
	assert.InDelta(t, -2.0, pos.MaxLossPct, 1e-9)

	// A quieter day must not shrink the running excursions.
	pos.Update(domain.Bar{High: 101, Low: 100, Close: 100.5})
	assert.Equal(t, 2, pos.DaysHeld)
	assert.InDelta(t, 4.0, pos.MaxGainPct, 1e-9)
	assert.InDelta(t, -2.0, pos.MaxLossPct, 1e-9)
}

// Scenario from the swing setup: one signal, filled at the next open,
// target touched on the following day. A second signal for a ticker
// with no data extends the horizon and must never be admitted.
func TestRunTargetHitScenario(t *testing.T) {
	engine := newEngine(t, testConfig())
	cfg := testConfig()

	signals := []domain.Signal{
		{Ticker: "X", Date: day("2024-06-03"), EntryPrice: 100, StopLoss: 95, Target: 110, PatternID: "p1"},
		{Ticker: "ZZZ", Date: day("2024-06-06"), EntryPrice: 50, StopLoss: 45, Target: 60},
	}
	data := staticBars{
		"X": {
			{Date: day("2024-06-04"), Open: 100, High: 102, Low: 99, Close: 101, Volume: 100000},
			{Date: day("2024-06-05"), Open: 101, High: 111, Low: 100, Close: 109, Volume: 120000},
			{Date: day("2024-06-06"), Open: 109, High: 110, Low: 107, Close: 108, Volume: 90000},
		},
	}

	result, err := engine.Run(signals, data)
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]

	assert.Equal(t, "X", trade.Ticker)
	assert.Equal(t, domain.ExitTargetHit, trade.ExitReason)
	assert.Equal(t, day("2024-06-04"), trade.EntryDate)
	assert.Equal(t, day("2024-06-05"), trade.ExitDate)
	assert.InDelta(t, 100.1, trade.EntryPrice, 1e-9)    // 100 * 1.001
	assert.InDelta(t, 109.89, trade.ExitPrice, 1e-9)    // 110 * 0.999
	assert.Equal(t, 49, trade.Shares)                   // floor(5000 / 100.1)

	// Capital ledger: entry deducts notional plus one-way costs, exit
	// credits the full exit value.
	entryNotional := float64(trade.Shares) * trade.EntryPrice
	oneWay := cfg.Costs.Calculate(entryNotional, false).TotalOneWay
	expectedFinal := 100000 - oneWay + trade.GrossPnL
	assert.InDelta(t, expectedFinal, result.Metrics.FinalEquity, 1e-6)

	// Trade record nets out the full round trip.
	assert.InDelta(t, trade.GrossPnL-2*oneWay, trade.NetPnL, 1e-6)
	assert.LessOrEqual(t, result.Metrics.MaxDrawdown, 0.0)
}

func TestRunStopHitScenario(t *testing.T) {
	engine := newEngine(t, testConfig())

	signals := []domain.Signal{
		{Ticker: "X", Date: day("2024-06-03"), EntryPrice: 100, StopLoss: 95, Target: 110},
		{Ticker: "ZZZ", Date: day("2024-06-06"), EntryPrice: 50, StopLoss: 45, Target: 60},
	}
	data := staticBars{
		"X": {
			{Date: day("2024-06-04"), Open: 100, High: 101, Low: 98, Close: 99},
			{Date: day("2024-06-05"), Open: 99, High: 100, Low: 94, Close: 96},
			{Date: day("2024-06-06"), Open: 96, High: 97, Low: 95, Close: 96},
		},
	}

	result, err := engine.Run(signals, data)
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, domain.ExitStopHit, result.Trades[0].ExitReason)
	assert.InDelta(t, 95*0.999, result.Trades[0].ExitPrice, 1e-9)
	assert.Equal(t, day("2024-06-05"), result.Trades[0].ExitDate)
}

func TestRunEndOfBacktestLiquidation(t *testing.T) {
	engine := newEngine(t, testConfig())

	// Neither stop nor target is ever touched; the horizon ends with
	// the position still open.
	signals := []domain.Signal{
		{Ticker: "X", Date: day("2024-06-03"), EntryPrice: 100, StopLoss: 90, Target: 120},
		{Ticker: "ZZZ", Date: day("2024-06-05"), EntryPrice: 50, StopLoss: 45, Target: 60},
	}
	data := staticBars{
		"X": {
			{Date: day("2024-06-04"), Open: 100, High: 103, Low: 99, Close: 102},
			{Date: day("2024-06-05"), Open: 102, High: 104, Low: 101, Close: 103},
		},
	}

	result, err := engine.Run(signals, data)
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, domain.ExitEndOfBacktest, trade.ExitReason)
	assert.InDelta(t, 103*0.999, trade.ExitPrice, 1e-9) // final close, sell slippage
	assert.Empty(t, engine.OpenPositions())
}

func TestRunSkipsSignalWithoutNextDayBar(t *testing.T) {
	engine := newEngine(t, testConfig())

	// The ticker exists but has no bar on the fill date.
	signals := []domain.Signal{
		{Ticker: "X", Date: day("2024-06-03"), EntryPrice: 100, StopLoss: 95, Target: 110},
		{Ticker: "Y", Date: day("2024-06-04"), EntryPrice: 50, StopLoss: 45, Target: 60},
	}
	data := staticBars{
		"X": {{Date: day("2024-06-10"), Open: 100, High: 101, Low: 99, Close: 100}},
	}

	result, err := engine.Run(signals, data)
	require.NoError(t, err)
	assert.Empty(t, result.Trades)
}

func TestRunSkipsMissingBarDays(t *testing.T) {
	engine := newEngine(t, testConfig())

	// No bar for 2024-06-05: days_held must not advance that day.
	signals := []domain.Signal{
		{Ticker: "X", Date: day("2024-06-03"), EntryPrice: 100, StopLoss: 90, Target: 120},
		{Ticker: "ZZZ", Date: day("2024-06-06"), EntryPrice: 50, StopLoss: 45, Target: 60},
	}
	data := staticBars{
		"X": {
			{Date: day("2024-06-04"), Open: 100, High: 103, Low: 99, Close: 102},
			{Date: day("2024-06-06"), Open: 102, High: 104, Low: 101, Close: 103},
		},
	}

	result, err := engine.Run(signals, data)
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	// Updated on 06-04 and 06-06 only.
	assert.Equal(t, 2, result.Trades[0].HoldingDays)
}

func TestRunEquityCurvePerTradingDay(t *testing.T) {
	engine := newEngine(t, testConfig())

	// 2024-06-03 (Mon) through 2024-06-10 (Mon): six trading days,
	// weekend skipped.
	signals := []domain.Signal{
		{Ticker: "X", Date: day("2024-06-03"), EntryPrice: 100, StopLoss: 90, Target: 120},
		{Ticker: "ZZZ", Date: day("2024-06-10"), EntryPrice: 50, StopLoss: 45, Target: 60},
	}
	data := staticBars{
		"X": {
			{Date: day("2024-06-04"), Open: 100, High: 103, Low: 99, Close: 102},
			{Date: day("2024-06-05"), Open: 102, High: 104, Low: 101, Close: 103},
			{Date: day("2024-06-06"), Open: 103, High: 105, Low: 102, Close: 104},
			{Date: day("2024-06-07"), Open: 104, High: 106, Low: 103, Close: 105},
			{Date: day("2024-06-10"), Open: 105, High: 107, Low: 104, Close: 106},
		},
	}

	result, err := engine.Run(signals, data)
	require.NoError(t, err)

	require.Len(t, result.EquityCurve, 6)
	assert.Equal(t, day("2024-06-03"), result.EquityCurve[0].Date)
	assert.Equal(t, day("2024-06-10"), result.EquityCurve[5].Date)
}

func TestRunNoSignals(t *testing.T) {
	engine := newEngine(t, testConfig())
	_, err := engine.Run(nil, staticBars{})
	assert.Error(t, err)
}

func TestOnDayHook(t *testing.T) {
	engine := newEngine(t, testConfig())

	var days []time.Time
	engine.OnDay = func(date time.Time, equity float64, open int) {
		days = append(days, date)
		assert.Greater(t, equity, 0.0)
	}

	signals := []domain.Signal{
		{Ticker: "X", Date: day("2024-06-03"), EntryPrice: 100, StopLoss: 95, Target: 110},
	}
	data := staticBars{
		"X": {{Date: day("2024-06-04"), Open: 100, High: 101, Low: 99, Close: 100}},
	}

	_, err := engine.Run(signals, data)
	require.NoError(t, err)
	assert.Len(t, days, 1)
}
