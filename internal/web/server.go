package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/quantnse/pattern_backtest/internal/domain"
	"github.com/quantnse/pattern_backtest/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router      *http.ServeMux
	server      *http.Server
	backtests   domain.BacktestRepository
	signals     domain.SignalRepository
	patterns    domain.PatternRepository
	service     *usecase.BacktestService
	data        domain.BarProvider
	backtestCfg usecase.Config
	hub         *ProgressHub
	logger      *zap.Logger
}

func NewServer(
	port int,
	backtests domain.BacktestRepository,
	signals domain.SignalRepository,
	patterns domain.PatternRepository,
	service *usecase.BacktestService,
	data domain.BarProvider,
	backtestCfg usecase.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:      http.NewServeMux(),
		backtests:   backtests,
		signals:     signals,
		patterns:    patterns,
		service:     service,
		data:        data,
		backtestCfg: backtestCfg,
		hub:         NewProgressHub(logger),
		logger:      logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Runs
	s.router.HandleFunc("GET /api/runs", s.handleListRuns)
	s.router.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	s.router.HandleFunc("GET /api/runs/{id}/trades", s.handleRunTrades)
	s.router.HandleFunc("GET /api/runs/{id}/equity", s.handleRunEquity)

	// Signals / Patterns
	s.router.HandleFunc("GET /api/signals", s.handleListSignals)
	s.router.HandleFunc("GET /api/patterns", s.handleListPatterns)

	// Backtest trigger
	s.router.HandleFunc("POST /api/backtest", s.handleRunBacktest)

	// Live progress
	s.router.HandleFunc("GET /ws/progress", s.hub.HandleWS)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
