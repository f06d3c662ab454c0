package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/quantnse/pattern_backtest/internal/domain"
	"go.uber.org/zap"
)

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := s.backtests.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list runs", zap.Error(err))
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.backtests.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, run)
}

func (s *Server) handleRunTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.backtests.ListTrades(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, trades)
}

func (s *Server) handleRunEquity(w http.ResponseWriter, r *http.Request) {
	points, err := s.backtests.ListEquityCurve(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error("Failed to list equity curve", zap.Error(err))
		http.Error(w, "Failed to list equity curve", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, points)
}

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := s.signals.ListSignals(r.Context())
	if err != nil {
		s.logger.Error("Failed to list signals", zap.Error(err))
		http.Error(w, "Failed to list signals", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, signals)
}

func (s *Server) handleListPatterns(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		http.Error(w, "ticker query parameter required", http.StatusBadRequest)
		return
	}

	hits, err := s.patterns.ListPatterns(r.Context(), ticker, 200)
	if err != nil {
		s.logger.Error("Failed to list patterns", zap.Error(err))
		http.Error(w, "Failed to list patterns", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, hits)
}

// handleRunBacktest launches a backtest over the stored signals and
// the server's bar data, streaming per-day progress to websocket
// subscribers. The simulation itself stays single-threaded.
func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	signals, err := s.signals.ListSignals(r.Context())
	if err != nil || len(signals) == 0 {
		http.Error(w, "No signals available", http.StatusBadRequest)
		return
	}

	values := make([]domain.Signal, 0, len(signals))
	for _, sig := range signals {
		values = append(values, *sig)
	}

	run, _, err := s.service.Run(r.Context(), s.backtestCfg, values, s.data,
		func(date time.Time, equity float64, open int) {
			s.hub.Broadcast(ProgressEvent{
				Date:          date.Format("2006-01-02"),
				Equity:        equity,
				OpenPositions: open,
			})
		})
	if err != nil {
		s.logger.Error("Backtest failed", zap.Error(err))
		http.Error(w, "Backtest failed", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, run)
}
