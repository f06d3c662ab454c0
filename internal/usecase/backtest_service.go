package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quantnse/pattern_backtest/internal/domain"
	"go.uber.org/zap"
)

// BacktestService runs backtests and persists their results. The
// engine itself is stateful and single-use; the service constructs a
// fresh one per run.
type BacktestService struct {
	repo     domain.BacktestRepository
	calendar *TradingCalendar
	logger   *zap.Logger
}

func NewBacktestService(repo domain.BacktestRepository, calendar *TradingCalendar, logger *zap.Logger) *BacktestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestService{repo: repo, calendar: calendar, logger: logger}
}

// Run executes a full backtest and stores the run, its trades and its
// equity curve. onDay, when non-nil, receives per-day progress.
func (s *BacktestService) Run(
	ctx context.Context,
	cfg Config,
	signals []domain.Signal,
	data domain.BarProvider,
	onDay func(date time.Time, equity float64, openPositions int),
) (*domain.BacktestRun, *Result, error) {
	engine, err := NewBacktestEngine(cfg, s.calendar, s.logger)
	if err != nil {
		return nil, nil, err
	}
	engine.OnDay = onDay

	startedAt := time.Now()
	result, err := engine.Run(signals, data)
	if err != nil {
		return nil, nil, fmt.Errorf("backtest failed: %w", err)
	}

	run := &domain.BacktestRun{
		ID:             uuid.NewString(),
		StartedAt:      startedAt,
		FinishedAt:     time.Now(),
		InitialCapital: cfg.InitialCapital,
		SignalCount:    len(signals),
		Metrics:        result.Metrics,
	}

	if s.repo != nil {
		if err := s.repo.SaveRun(ctx, run); err != nil {
			return nil, nil, fmt.Errorf("failed to save run: %w", err)
		}
		if err := s.repo.SaveTrades(ctx, run.ID, result.Trades); err != nil {
			return nil, nil, fmt.Errorf("failed to save trades: %w", err)
		}
		if err := s.repo.SaveEquityCurve(ctx, run.ID, result.EquityCurve); err != nil {
			return nil, nil, fmt.Errorf("failed to save equity curve: %w", err)
		}
	}

	return run, result, nil
}
