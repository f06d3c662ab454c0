package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/quantnse/pattern_backtest/internal/domain"
	"github.com/quantnse/pattern_backtest/internal/infrastructure/export"
	"github.com/quantnse/pattern_backtest/internal/infrastructure/logger"
	"github.com/quantnse/pattern_backtest/internal/infrastructure/marketdata"
	"github.com/quantnse/pattern_backtest/internal/infrastructure/storage"
	"github.com/quantnse/pattern_backtest/internal/usecase"
)

func main() {
	dataDir := flag.String("data", "data", "directory of per-ticker OHLCV CSVs")
	dbPath := flag.String("db", "backtest.db", "SQLite database for patterns and signals")
	outPath := flag.String("out", "", "optional signals CSV output")
	exchange := flag.String("exchange", "NSE", "exchange tag stored with patterns")
	minConfidence := flag.Float64("min-confidence", 0.5, "minimum pattern confidence")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	log, err := logger.NewLogger(*logLevel)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	provider, err := marketdata.NewCSVProvider(*dataDir, log)
	if err != nil {
		log.Fatal("Failed to load market data", zap.Error(err))
	}

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	scanner := usecase.NewPatternScanner(*exchange, *minConfidence, log)
	ctx := context.Background()

	var totalHits, totalSignals int
	for _, ticker := range provider.Tickers() {
		bars, _ := provider.Bars(ticker)

		hits := scanner.Scan(ticker, bars)
		for i := range hits {
			if err := store.SavePattern(ctx, &hits[i]); err != nil {
				log.Error("Failed to save pattern", zap.String("id", hits[i].ID), zap.Error(err))
			}
		}

		signals := scanner.BuildSignals(hits)
		for i := range signals {
			if err := store.SaveSignal(ctx, &signals[i]); err != nil {
				log.Error("Failed to save signal", zap.String("id", signals[i].ID), zap.Error(err))
			}
		}

		totalHits += len(hits)
		totalSignals += len(signals)
	}

	fmt.Printf("Scanned %d tickers: %d patterns, %d signals\n",
		len(provider.Tickers()), totalHits, totalSignals)

	if *outPath != "" {
		signals, err := store.ListSignals(ctx)
		if err != nil {
			log.Fatal("Failed to list signals", zap.Error(err))
		}
		plain := make([]domain.Signal, 0, len(signals))
		for _, s := range signals {
			plain = append(plain, *s)
		}
		if err := export.WriteSignalsCSV(*outPath, plain); err != nil {
			log.Fatal("Failed to write signals CSV", zap.Error(err))
		}
		fmt.Printf("Wrote %d signals to %s\n", len(plain), *outPath)
	}
}
