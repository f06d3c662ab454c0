package main

import (
	"context"
	"fmt"
	"os"

	"github.com/quantnse/pattern_backtest/internal/infrastructure/storage"
)

func main() {
	dbPath := "backtest.db"
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		fmt.Printf("Failed to init sqlite: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	runs, err := store.ListRuns(ctx, 20)
	if err != nil {
		fmt.Printf("Failed to list runs: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d runs:\n", len(runs))
	for _, r := range runs {
		fmt.Printf("- Run %s: %d signals, started %s\n", r.ID, r.SignalCount, r.StartedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Trades: %d | Win Rate: %.2f%% | P&L: Rs.%.2f | Final Equity: Rs.%.2f | Max DD: %.2f%%\n",
			r.Metrics.TotalTrades, r.Metrics.WinRate*100, r.Metrics.TotalPnL,
			r.Metrics.FinalEquity, r.Metrics.MaxDrawdown)

		trades, err := store.ListTrades(ctx, r.ID)
		if err != nil {
			fmt.Printf("  Failed to list trades: %v\n", err)
			continue
		}
		for _, t := range trades {
			fmt.Printf("  %s %s -> %s @ %.2f -> %.2f (%s) net %.2f\n",
				t.Ticker, t.EntryDate.Format("2006-01-02"), t.ExitDate.Format("2006-01-02"),
				t.EntryPrice, t.ExitPrice, t.ExitReason, t.NetPnL)
		}
	}
}
