package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/quantnse/pattern_backtest/internal/infrastructure/logger"
	"github.com/quantnse/pattern_backtest/internal/infrastructure/marketdata"
	"github.com/quantnse/pattern_backtest/internal/infrastructure/storage"
	"github.com/quantnse/pattern_backtest/internal/usecase"
	"github.com/quantnse/pattern_backtest/internal/web"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Data struct {
		Dir string `yaml:"dir"`
	} `yaml:"data"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Backtest usecase.Config `yaml:"backtest"`
	Calendar struct {
		Holidays []string `yaml:"holidays"`
	} `yaml:"calendar"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{Backtest: usecase.DefaultConfig()}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	// 1. Load Config
	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "backtest.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Load Market Data (materialized up front; the simulation
	// loop itself never fetches)
	dataDir := cfg.Data.Dir
	if dataDir == "" {
		dataDir = "data"
	}
	provider, err := marketdata.NewCSVProvider(dataDir, log)
	if err != nil {
		log.Fatal("Failed to load market data", zap.Error(err))
	}

	// 5. Init Service
	calendar := usecase.NewTradingCalendar(cfg.Calendar.Holidays)
	service := usecase.NewBacktestService(store, calendar, log)

	// 6. Init Web Server
	port := cfg.Server.Port
	if port == 0 {
		port = 8080 // Default
	}
	server := web.NewServer(port, store, store, store, service, provider, cfg.Backtest, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 7. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	server.Shutdown(context.Background())
}
