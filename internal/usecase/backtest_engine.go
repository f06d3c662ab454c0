package usecase

import (
	"fmt"
	"sort"
	"time"

	"github.com/quantnse/pattern_backtest/internal/domain"
	"go.uber.org/zap"
)

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Config is the immutable engine configuration. It is passed in at
// construction; nothing inside the engine reads process-wide defaults.
type Config struct {
	InitialCapital float64    `yaml:"initial_capital"`
	PositionSize   float64    `yaml:"position_size"`
	MaxPositions   int        `yaml:"max_positions"`
	SlippagePct    float64    `yaml:"slippage_pct"`
	MaxHoldingDays int        `yaml:"max_holding_days"`
	Costs          CostConfig `yaml:"costs"`
}

// DefaultConfig mirrors the standard swing setup: Rs.1 lakh capital,
// 5% per trade, 5 concurrent positions, 0.1% slippage, 20-day time stop.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 100000,
		PositionSize:   0.05,
		MaxPositions:   5,
		SlippagePct:    0.001,
		MaxHoldingDays: 20,
		Costs:          DefaultCostConfig(),
	}
}

// Validate rejects configurations that would make a simulation
// meaningless. Called at engine construction.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive, got %.2f", c.InitialCapital)
	}
	if c.PositionSize <= 0 || c.PositionSize > 1 {
		return fmt.Errorf("position_size must be in (0, 1], got %.4f", c.PositionSize)
	}
	if c.MaxPositions <= 0 {
		return fmt.Errorf("max_positions must be positive, got %d", c.MaxPositions)
	}
	if c.MaxHoldingDays <= 0 {
		return fmt.Errorf("max_holding_days must be positive, got %d", c.MaxHoldingDays)
	}
	if c.SlippagePct < 0 {
		return fmt.Errorf("slippage_pct must not be negative, got %.4f", c.SlippagePct)
	}
	return nil
}

// Result holds everything a finished backtest produced.
type Result struct {
	Trades      []domain.Trade
	EquityCurve []domain.EquityPoint
	Metrics     domain.Metrics
}

// BacktestEngine simulates a long-only swing strategy day by day over
// daily bars, with Indian-market transaction costs and slippage.
// It owns all mutable state (capital, open positions) and is strictly
// single-threaded: trade outcomes depend on iteration order when the
// capital or position-count limits bind.
type BacktestEngine struct {
	cfg      Config
	calendar *TradingCalendar
	logger   *zap.Logger

	capital   float64
	positions []*domain.Position
	trades    []domain.Trade
	equity    []domain.EquityPoint

	// OnDay, when set, is invoked after each simulated trading day.
	// Used by the web layer to stream progress.
	OnDay func(date time.Time, equity float64, openPositions int)
}

func NewBacktestEngine(cfg Config, calendar *TradingCalendar, logger *zap.Logger) (*BacktestEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	if calendar == nil {
		calendar = NewTradingCalendar(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("Backtest engine initialized",
		zap.Float64("initial_capital", cfg.InitialCapital),
		zap.Int("max_positions", cfg.MaxPositions))

	return &BacktestEngine{
		cfg:      cfg,
		calendar: calendar,
		logger:   logger,
		capital:  cfg.InitialCapital,
	}, nil
}

func (e *BacktestEngine) Capital() float64 { return e.capital }

func (e *BacktestEngine) OpenPositions() []*domain.Position { return e.positions }

// CanOpenPosition reports whether the concurrent-position cap allows
// another entry.
func (e *BacktestEngine) CanOpenPosition() bool {
	return len(e.positions) < e.cfg.MaxPositions
}

// CalculatePositionSize sizes a new position as a fixed fraction of
// current capital, rounded down to whole shares. Zero shares means the
// caller cannot enter.
func (e *BacktestEngine) CalculatePositionSize(price float64) (int, float64) {
	if price <= 0 {
		return 0, 0
	}
	target := e.capital * e.cfg.PositionSize
	shares := int(target / price)
	return shares, float64(shares) * price
}

// ApplySlippage worsens the price by the configured fraction: buys
// fill higher, sells fill lower.
func (e *BacktestEngine) ApplySlippage(price float64, side OrderSide) float64 {
	if side == SideBuy {
		return price * (1 + e.cfg.SlippagePct)
	}
	return price * (1 - e.cfg.SlippagePct)
}

// ExecuteEntry admits a signal as an open position, or returns nil.
// Admission is all-or-nothing: capacity, sizing and the capital check
// (position value plus one-way costs) all pass before any state is
// mutated.
func (e *BacktestEngine) ExecuteEntry(ticker string, date time.Time, rawPrice, stopLoss, target float64, patternID string) *domain.Position {
	if !e.CanOpenPosition() {
		e.logger.Debug("Max positions reached, skipping", zap.String("ticker", ticker))
		return nil
	}

	actualEntry := e.ApplySlippage(rawPrice, SideBuy)

	shares, positionValue := e.CalculatePositionSize(actualEntry)
	if shares == 0 {
		e.logger.Debug("Insufficient capital to size position", zap.String("ticker", ticker))
		return nil
	}

	costs := e.cfg.Costs.Calculate(positionValue, false)
	totalCost := positionValue + costs.TotalOneWay
	if totalCost > e.capital {
		e.logger.Debug("Insufficient capital",
			zap.String("ticker", ticker),
			zap.Float64("required", totalCost),
			zap.Float64("available", e.capital))
		return nil
	}

	position := &domain.Position{
		Ticker:       ticker,
		EntryDate:    date,
		EntryPrice:   actualEntry,
		Shares:       shares,
		StopLoss:     stopLoss,
		Target:       target,
		PatternID:    patternID,
		CurrentPrice: actualEntry,
	}

	e.capital -= totalCost
	e.positions = append(e.positions, position)

	e.logger.Info("ENTRY",
		zap.String("ticker", ticker),
		zap.Float64("price", actualEntry),
		zap.Int("shares", shares),
		zap.Float64("value", positionValue))

	return position
}

// ExecuteExit closes a position and returns the trade record. The
// transaction cost is computed on the entry notional, not the exit
// notional; the original system priced it that way and changing it
// would change historical results.
func (e *BacktestEngine) ExecuteExit(position *domain.Position, date time.Time, rawPrice float64, reason domain.ExitReason) domain.Trade {
	actualExit := e.ApplySlippage(rawPrice, SideSell)

	positionValue := float64(position.Shares) * position.EntryPrice
	costs := e.cfg.Costs.Calculate(positionValue, false)

	pnl := position.PnL(actualExit, costs)

	e.capital += float64(position.Shares) * actualExit
	e.removePosition(position)

	trade := domain.Trade{
		Ticker:      position.Ticker,
		PatternID:   position.PatternID,
		EntryDate:   position.EntryDate,
		EntryPrice:  position.EntryPrice,
		ExitDate:    date,
		ExitPrice:   actualExit,
		Shares:      position.Shares,
		HoldingDays: position.DaysHeld,
		ExitReason:  reason,
		GrossPnL:    pnl.GrossPnL,
		Costs:       pnl.Costs,
		NetPnL:      pnl.NetPnL,
		NetPnLPct:   pnl.NetPnLPct,
		MaxGainPct:  position.MaxGainPct,
		MaxLossPct:  position.MaxLossPct,
	}
	e.trades = append(e.trades, trade)

	e.logger.Info("EXIT",
		zap.String("ticker", position.Ticker),
		zap.Float64("price", actualExit),
		zap.String("reason", string(reason)),
		zap.Float64("net_pnl", pnl.NetPnL),
		zap.Float64("net_pnl_pct", pnl.NetPnLPct))

	return trade
}

func (e *BacktestEngine) removePosition(position *domain.Position) {
	for i, p := range e.positions {
		if p == position {
			e.positions = append(e.positions[:i], e.positions[i+1:]...)
			return
		}
	}
}

// Run steps through every calendar day from the earliest to the latest
// signal date, filling signals at the next trading day's open, marking
// open positions with the day's bar and executing exits. Missing bar
// data silently skips that ticker for that step; that is the intended
// data-gap policy, not an error. Remaining positions are force-closed
// at their final bar's close once the range ends.
func (e *BacktestEngine) Run(signals []domain.Signal, data domain.BarProvider) (*Result, error) {
	if len(signals) == 0 {
		return nil, fmt.Errorf("no signals to backtest")
	}

	ordered := make([]domain.Signal, len(signals))
	copy(ordered, signals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	startDate := ordered[0].Date
	endDate := ordered[len(ordered)-1].Date

	e.logger.Info("Starting backtest",
		zap.Time("start", startDate),
		zap.Time("end", endDate),
		zap.Int("signals", len(ordered)),
		zap.Float64("initial_capital", e.cfg.InitialCapital))

	for current := startDate; !current.After(endDate); current = current.AddDate(0, 0, 1) {
		if !e.calendar.IsTradingDay(current) {
			continue
		}

		e.processSignals(ordered, current, data)
		e.processPositions(current, data)

		totalEquity := e.capital
		for _, pos := range e.positions {
			totalEquity += float64(pos.Shares) * pos.CurrentPrice
		}
		e.equity = append(e.equity, domain.EquityPoint{Date: current, Equity: totalEquity})

		if e.OnDay != nil {
			e.OnDay(current, totalEquity, len(e.positions))
		}
	}

	// Liquidate whatever is still open at the last known close.
	for _, position := range append([]*domain.Position(nil), e.positions...) {
		bars, ok := data.Bars(position.Ticker)
		if !ok || len(bars) == 0 {
			continue
		}
		finalClose := bars[len(bars)-1].Close
		e.ExecuteExit(position, endDate, finalClose, domain.ExitEndOfBacktest)
	}

	metrics := ComputeMetrics(e.trades, e.equity)

	e.logger.Info("Backtest complete",
		zap.Int("total_trades", metrics.TotalTrades),
		zap.Float64("win_rate", metrics.WinRate),
		zap.Float64("total_pnl", metrics.TotalPnL),
		zap.Float64("final_equity", metrics.FinalEquity),
		zap.Float64("max_drawdown", metrics.MaxDrawdown))

	return &Result{
		Trades:      e.trades,
		EquityCurve: e.equity,
		Metrics:     metrics,
	}, nil
}

// processSignals fills every signal dated today at the next trading
// day's open. Entries never fill same-day.
func (e *BacktestEngine) processSignals(signals []domain.Signal, current time.Time, data domain.BarProvider) {
	for _, signal := range signals {
		if !sameDay(signal.Date, current) {
			continue
		}

		bars, ok := data.Bars(signal.Ticker)
		if !ok {
			continue
		}

		fillDate := e.calendar.NextTradingDay(current)
		bar, ok := findBar(bars, fillDate)
		if !ok {
			continue
		}

		e.ExecuteEntry(signal.Ticker, fillDate, bar.Open, signal.StopLoss, signal.Target, signal.PatternID)
	}
}

// processPositions marks every open position with today's bar, then
// executes the exits that fired. Exits are collected first so that the
// open set is not mutated mid-iteration.
func (e *BacktestEngine) processPositions(current time.Time, data domain.BarProvider) {
	type pendingExit struct {
		position *domain.Position
		reason   domain.ExitReason
		price    float64
	}
	var exits []pendingExit

	for _, position := range e.positions {
		// A position filled at tomorrow's open is not live yet.
		if position.EntryDate.After(current) {
			continue
		}
		bars, ok := data.Bars(position.Ticker)
		if !ok {
			continue
		}
		bar, ok := findBar(bars, current)
		if !ok {
			continue
		}

		position.Update(bar)

		if shouldExit, reason, price := position.CheckExit(bar, e.cfg.MaxHoldingDays); shouldExit {
			exits = append(exits, pendingExit{position, reason, price})
		}
	}

	for _, ex := range exits {
		e.ExecuteExit(ex.position, current, ex.price, ex.reason)
	}
}

func findBar(bars []domain.Bar, date time.Time) (domain.Bar, bool) {
	for _, b := range bars {
		if sameDay(b.Date, date) {
			return b, true
		}
	}
	return domain.Bar{}, false
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
