package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/quantnse/pattern_backtest/internal/infrastructure/export"
	"github.com/quantnse/pattern_backtest/internal/infrastructure/logger"
	"github.com/quantnse/pattern_backtest/internal/infrastructure/marketdata"
	"github.com/quantnse/pattern_backtest/internal/infrastructure/storage"
	"github.com/quantnse/pattern_backtest/internal/usecase"
)

type fileConfig struct {
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Backtest usecase.Config `yaml:"backtest"`
	Calendar struct {
		Holidays []string `yaml:"holidays"`
	} `yaml:"calendar"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	cfg.Logging.Level = "info"
	cfg.Backtest = usecase.DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	flagConfig    string
	flagSignals   string
	flagData      string
	flagDB        string
	flagExportDir string
)

func main() {
	root := &cobra.Command{
		Use:   "backtest",
		Short: "Swing-pattern backtester for Indian equities",
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&flagDB, "db", "backtest.db", "SQLite results database")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest over a signal file and bar directory",
		RunE:  runBacktest,
	}
	runCmd.Flags().StringVar(&flagSignals, "signals", "signals.csv", "entry-signal CSV file")
	runCmd.Flags().StringVar(&flagData, "data", "data", "directory of per-ticker OHLCV CSVs")
	runCmd.Flags().StringVar(&flagExportDir, "export-dir", "", "write trades/equity CSVs here")

	reportCmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Print metrics for a stored run (latest when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  reportRun,
	}

	root.AddCommand(runCmd, reportCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync()

	signals, err := marketdata.LoadSignalsCSV(flagSignals)
	if err != nil {
		return fmt.Errorf("failed to load signals: %w", err)
	}

	provider, err := marketdata.NewCSVProvider(flagData, log)
	if err != nil {
		return fmt.Errorf("failed to load market data: %w", err)
	}

	store, err := storage.NewSQLiteStore(flagDB)
	if err != nil {
		return fmt.Errorf("failed to init sqlite: %w", err)
	}
	defer store.Close()

	calendar := usecase.NewTradingCalendar(cfg.Calendar.Holidays)
	service := usecase.NewBacktestService(store, calendar, log)

	run, result, err := service.Run(context.Background(), cfg.Backtest, signals, provider, nil)
	if err != nil {
		return err
	}

	printMetrics(run.ID, result)

	if flagExportDir != "" {
		if err := os.MkdirAll(flagExportDir, 0o755); err != nil {
			return err
		}
		if err := export.WriteTradesCSV(filepath.Join(flagExportDir, "trades.csv"), result.Trades); err != nil {
			return fmt.Errorf("failed to export trades: %w", err)
		}
		if err := export.WriteEquityCSV(filepath.Join(flagExportDir, "equity.csv"), result.EquityCurve); err != nil {
			return fmt.Errorf("failed to export equity curve: %w", err)
		}
		fmt.Printf("Exported trades.csv and equity.csv to %s\n", flagExportDir)
	}

	return nil
}

func reportRun(cmd *cobra.Command, args []string) error {
	store, err := storage.NewSQLiteStore(flagDB)
	if err != nil {
		return fmt.Errorf("failed to init sqlite: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	var runID string
	if len(args) == 1 {
		runID = args[0]
	} else {
		runs, err := store.ListRuns(ctx, 1)
		if err != nil || len(runs) == 0 {
			return fmt.Errorf("no stored runs found")
		}
		runID = runs[0].ID
	}

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("run %s not found: %w", runID, err)
	}
	trades, err := store.ListTrades(ctx, runID)
	if err != nil {
		return err
	}
	equity, err := store.ListEquityCurve(ctx, runID)
	if err != nil {
		return err
	}

	printMetrics(run.ID, &usecase.Result{Trades: trades, EquityCurve: equity, Metrics: run.Metrics})
	return nil
}

func printMetrics(runID string, result *usecase.Result) {
	m := result.Metrics
	fmt.Println("============================================================")
	fmt.Printf("Run: %s\n", runID)
	fmt.Println("============================================================")
	fmt.Printf("Total Trades:     %d (W: %d / L: %d)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	fmt.Printf("Win Rate:         %.2f%%\n", m.WinRate*100)
	fmt.Printf("Total P&L:        Rs.%.2f\n", m.TotalPnL)
	fmt.Printf("Avg Win / Loss:   Rs.%.2f / Rs.%.2f\n", m.AvgWin, m.AvgLoss)
	fmt.Printf("Profit Factor:    %.2f\n", m.ProfitFactor)
	fmt.Printf("Avg Holding Days: %.1f\n", m.AvgHoldingDays)
	fmt.Printf("Max Drawdown:     %.2f%%\n", m.MaxDrawdown)
	fmt.Printf("Final Equity:     Rs.%.2f\n", m.FinalEquity)
	fmt.Println("============================================================")
}
