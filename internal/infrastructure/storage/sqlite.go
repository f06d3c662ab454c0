package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/quantnse/pattern_backtest/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			ticker TEXT NOT NULL,
			date DATETIME NOT NULL,
			entry_price REAL NOT NULL,
			stop_loss REAL NOT NULL,
			target REAL NOT NULL,
			pattern_id TEXT,
			score REAL NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_signals_ticker ON signals(ticker);`,
		`CREATE TABLE IF NOT EXISTS patterns (
			id TEXT PRIMARY KEY,
			ticker TEXT NOT NULL,
			exchange TEXT NOT NULL,
			pattern TEXT NOT NULL,
			direction TEXT NOT NULL,
			date DATETIME NOT NULL,
			confidence REAL NOT NULL,
			close REAL NOT NULL,
			volume REAL NOT NULL,
			rsi_14 REAL,
			atr_14 REAL,
			volume_ratio REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_patterns_ticker_date ON patterns(ticker, date);`,
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			initial_capital REAL NOT NULL,
			signal_count INTEGER NOT NULL,
			total_trades INTEGER NOT NULL,
			winning_trades INTEGER NOT NULL,
			losing_trades INTEGER NOT NULL,
			win_rate REAL NOT NULL,
			total_pnl REAL NOT NULL,
			avg_win REAL NOT NULL,
			avg_loss REAL NOT NULL,
			profit_factor REAL NOT NULL,
			avg_holding_days REAL NOT NULL,
			max_drawdown REAL NOT NULL,
			final_equity REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			ticker TEXT NOT NULL,
			pattern_id TEXT,
			entry_date DATETIME NOT NULL,
			entry_price REAL NOT NULL,
			exit_date DATETIME NOT NULL,
			exit_price REAL NOT NULL,
			shares INTEGER NOT NULL,
			holding_days INTEGER NOT NULL,
			exit_reason TEXT NOT NULL,
			gross_pnl REAL NOT NULL,
			costs REAL NOT NULL,
			net_pnl REAL NOT NULL,
			net_pnl_pct REAL NOT NULL,
			max_gain_pct REAL NOT NULL,
			max_loss_pct REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);`,
		`CREATE TABLE IF NOT EXISTS equity_curve (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			date DATETIME NOT NULL,
			equity REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_equity_run ON equity_curve(run_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

// SignalRepository Implementation

func (s *SQLiteStore) SaveSignal(ctx context.Context, signal *domain.Signal) error {
	query := `INSERT INTO signals (id, ticker, date, entry_price, stop_loss, target, pattern_id, score)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		signal.ID, signal.Ticker, signal.Date, signal.EntryPrice,
		signal.StopLoss, signal.Target, signal.PatternID, signal.Score)
	return err
}

func (s *SQLiteStore) ListSignals(ctx context.Context) ([]*domain.Signal, error) {
	return s.querySignals(ctx, `SELECT id, ticker, date, entry_price, stop_loss, target, pattern_id, score FROM signals ORDER BY date`)
}

func (s *SQLiteStore) ListSignalsByTicker(ctx context.Context, ticker string) ([]*domain.Signal, error) {
	return s.querySignals(ctx, `SELECT id, ticker, date, entry_price, stop_loss, target, pattern_id, score FROM signals WHERE ticker = ? ORDER BY date`, ticker)
}

func (s *SQLiteStore) querySignals(ctx context.Context, query string, args ...any) ([]*domain.Signal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []*domain.Signal
	for rows.Next() {
		var sig domain.Signal
		if err := rows.Scan(&sig.ID, &sig.Ticker, &sig.Date, &sig.EntryPrice, &sig.StopLoss, &sig.Target, &sig.PatternID, &sig.Score); err != nil {
			return nil, err
		}
		signals = append(signals, &sig)
	}
	return signals, rows.Err()
}

// PatternRepository Implementation

func (s *SQLiteStore) SavePattern(ctx context.Context, hit *domain.PatternHit) error {
	query := `INSERT INTO patterns (id, ticker, exchange, pattern, direction, date, confidence, close, volume, rsi_14, atr_14, volume_ratio)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		hit.ID, hit.Ticker, hit.Exchange, hit.Pattern, hit.Direction, hit.Date,
		hit.Confidence, hit.Close, hit.Volume, hit.RSI14, hit.ATR14, hit.VolumeRatio)
	return err
}

func (s *SQLiteStore) ListPatterns(ctx context.Context, ticker string, limit int) ([]*domain.PatternHit, error) {
	query := `SELECT id, ticker, exchange, pattern, direction, date, confidence, close, volume, rsi_14, atr_14, volume_ratio
			  FROM patterns WHERE ticker = ? ORDER BY date DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, ticker, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []*domain.PatternHit
	for rows.Next() {
		var h domain.PatternHit
		if err := rows.Scan(&h.ID, &h.Ticker, &h.Exchange, &h.Pattern, &h.Direction, &h.Date,
			&h.Confidence, &h.Close, &h.Volume, &h.RSI14, &h.ATR14, &h.VolumeRatio); err != nil {
			return nil, err
		}
		hits = append(hits, &h)
	}
	return hits, rows.Err()
}

// BacktestRepository Implementation

func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.BacktestRun) error {
	query := `INSERT INTO backtest_runs (id, started_at, finished_at, initial_capital, signal_count,
			  total_trades, winning_trades, losing_trades, win_rate, total_pnl, avg_win, avg_loss,
			  profit_factor, avg_holding_days, max_drawdown, final_equity)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	m := run.Metrics
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.StartedAt, run.FinishedAt, run.InitialCapital, run.SignalCount,
		m.TotalTrades, m.WinningTrades, m.LosingTrades, m.WinRate, m.TotalPnL,
		m.AvgWin, m.AvgLoss, m.ProfitFactor, m.AvgHoldingDays, m.MaxDrawdown, m.FinalEquity)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.BacktestRun, error) {
	query := `SELECT id, started_at, finished_at, initial_capital, signal_count,
			  total_trades, winning_trades, losing_trades, win_rate, total_pnl, avg_win, avg_loss,
			  profit_factor, avg_holding_days, max_drawdown, final_equity
			  FROM backtest_runs WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)

	var run domain.BacktestRun
	if err := scanRun(row.Scan, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*domain.BacktestRun, error) {
	query := `SELECT id, started_at, finished_at, initial_capital, signal_count,
			  total_trades, winning_trades, losing_trades, win_rate, total_pnl, avg_win, avg_loss,
			  profit_factor, avg_holding_days, max_drawdown, final_equity
			  FROM backtest_runs ORDER BY started_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.BacktestRun
	for rows.Next() {
		var run domain.BacktestRun
		if err := scanRun(rows.Scan, &run); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func scanRun(scan func(dest ...any) error, run *domain.BacktestRun) error {
	m := &run.Metrics
	return scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.InitialCapital, &run.SignalCount,
		&m.TotalTrades, &m.WinningTrades, &m.LosingTrades, &m.WinRate, &m.TotalPnL,
		&m.AvgWin, &m.AvgLoss, &m.ProfitFactor, &m.AvgHoldingDays, &m.MaxDrawdown, &m.FinalEquity)
}

func (s *SQLiteStore) SaveTrades(ctx context.Context, runID string, trades []domain.Trade) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO trades (run_id, ticker, pattern_id, entry_date, entry_price, exit_date, exit_price,
			  shares, holding_days, exit_reason, gross_pnl, costs, net_pnl, net_pnl_pct, max_gain_pct, max_loss_pct)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, t := range trades {
		if _, err := tx.ExecContext(ctx, query,
			runID, t.Ticker, t.PatternID, t.EntryDate, t.EntryPrice, t.ExitDate, t.ExitPrice,
			t.Shares, t.HoldingDays, string(t.ExitReason), t.GrossPnL, t.Costs, t.NetPnL,
			t.NetPnLPct, t.MaxGainPct, t.MaxLossPct); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListTrades(ctx context.Context, runID string) ([]domain.Trade, error) {
	query := `SELECT ticker, pattern_id, entry_date, entry_price, exit_date, exit_price,
			  shares, holding_days, exit_reason, gross_pnl, costs, net_pnl, net_pnl_pct, max_gain_pct, max_loss_pct
			  FROM trades WHERE run_id = ? ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var reason string
		if err := rows.Scan(&t.Ticker, &t.PatternID, &t.EntryDate, &t.EntryPrice, &t.ExitDate, &t.ExitPrice,
			&t.Shares, &t.HoldingDays, &reason, &t.GrossPnL, &t.Costs, &t.NetPnL,
			&t.NetPnLPct, &t.MaxGainPct, &t.MaxLossPct); err != nil {
			return nil, err
		}
		t.ExitReason = domain.ExitReason(reason)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) SaveEquityCurve(ctx context.Context, runID string, points []domain.EquityPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO equity_curve (run_id, date, equity) VALUES (?, ?, ?)`
	for _, p := range points {
		if _, err := tx.ExecContext(ctx, query, runID, p.Date, p.Equity); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListEquityCurve(ctx context.Context, runID string) ([]domain.EquityPoint, error) {
	query := `SELECT date, equity FROM equity_curve WHERE run_id = ? ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.EquityPoint
	for rows.Next() {
		var p domain.EquityPoint
		if err := rows.Scan(&p.Date, &p.Equity); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
