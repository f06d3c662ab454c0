package domain

import "context"

// BarProvider supplies fully materialized daily bar series, keyed by
// ticker. A missing ticker is reported via the ok flag, never an error:
// the simulation's skip-on-missing-data policy is decided by the
// caller, not hidden behind an exception path.
type BarProvider interface {
	Bars(ticker string) ([]Bar, bool)
	Tickers() []string
}

// SignalRepository defines storage operations for entry signals.
type SignalRepository interface {
	SaveSignal(ctx context.Context, signal *Signal) error
	ListSignals(ctx context.Context) ([]*Signal, error)
	ListSignalsByTicker(ctx context.Context, ticker string) ([]*Signal, error)
}

// PatternRepository defines storage operations for detected patterns.
type PatternRepository interface {
	SavePattern(ctx context.Context, hit *PatternHit) error
	ListPatterns(ctx context.Context, ticker string, limit int) ([]*PatternHit, error)
}

// BacktestRepository defines storage operations for completed runs.
type BacktestRepository interface {
	SaveRun(ctx context.Context, run *BacktestRun) error
	GetRun(ctx context.Context, id string) (*BacktestRun, error)
	ListRuns(ctx context.Context, limit int) ([]*BacktestRun, error)

	SaveTrades(ctx context.Context, runID string, trades []Trade) error
	ListTrades(ctx context.Context, runID string) ([]Trade, error)

	SaveEquityCurve(ctx context.Context, runID string, points []EquityPoint) error
	ListEquityCurve(ctx context.Context, runID string) ([]EquityPoint, error)
}
