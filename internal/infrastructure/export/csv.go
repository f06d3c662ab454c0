package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/quantnse/pattern_backtest/internal/domain"
)

// WriteTradesCSV dumps a completed run's trade ledger.
func WriteTradesCSV(path string, trades []domain.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{"ticker", "pattern_id", "entry_date", "entry_price", "exit_date", "exit_price",
		"shares", "holding_days", "exit_reason", "gross_pnl", "costs", "net_pnl", "net_pnl_pct",
		"max_gain_pct", "max_loss_pct"})
	for _, t := range trades {
		w.Write([]string{
			t.Ticker, t.PatternID,
			t.EntryDate.Format("2006-01-02"), ftoa(t.EntryPrice),
			t.ExitDate.Format("2006-01-02"), ftoa(t.ExitPrice),
			strconv.Itoa(t.Shares), strconv.Itoa(t.HoldingDays), string(t.ExitReason),
			ftoa(t.GrossPnL), ftoa(t.Costs), ftoa(t.NetPnL), ftoa(t.NetPnLPct),
			ftoa(t.MaxGainPct), ftoa(t.MaxLossPct),
		})
	}
	return w.Error()
}

// WriteEquityCSV dumps the equity curve, one sample per trading day.
func WriteEquityCSV(path string, points []domain.EquityPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{"date", "equity"})
	for _, p := range points {
		w.Write([]string{p.Date.Format("2006-01-02"), ftoa(p.Equity)})
	}
	return w.Error()
}

// WriteSignalsCSV dumps scanner output in the format the backtest
// `run` command consumes.
func WriteSignalsCSV(path string, signals []domain.Signal) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{"date", "ticker", "entry_price", "stop_loss", "target", "pattern_id", "score"})
	for _, s := range signals {
		w.Write([]string{
			s.Date.Format("2006-01-02"), s.Ticker,
			ftoa(s.EntryPrice), ftoa(s.StopLoss), ftoa(s.Target),
			s.PatternID, ftoa(s.Score),
		})
	}
	return w.Error()
}

func ftoa(x float64) string { return strconv.FormatFloat(x, 'f', 4, 64) }
