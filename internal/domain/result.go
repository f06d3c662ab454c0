package domain

import "time"

// EquityPoint is one mark-to-market sample of total equity, recorded
// once per simulated trading day.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// Metrics aggregates a completed backtest.
type Metrics struct {
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	TotalPnL       float64 `json:"total_pnl"`
	AvgWin         float64 `json:"avg_win"`
	AvgLoss        float64 `json:"avg_loss"`
	ProfitFactor   float64 `json:"profit_factor"`
	AvgHoldingDays float64 `json:"avg_holding_days"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	FinalEquity    float64 `json:"final_equity"`
}

// BacktestRun is a persisted backtest: identity, config snapshot and
// summary metrics. Trades and equity samples are stored run-scoped.
type BacktestRun struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	InitialCapital float64
	SignalCount    int
	Metrics        Metrics
}
