package marketdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quantnse/pattern_backtest/internal/domain"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// CSVProvider serves daily bars loaded from per-ticker CSV files
// (TICKER.csv with a date,open,high,low,close,volume header). All
// files are parsed and date-normalized up front, before a simulation
// starts; the engine only ever sees typed, sorted bar slices.
type CSVProvider struct {
	bars map[string][]domain.Bar
}

func NewCSVProvider(dir string, logger *zap.Logger) (*CSVProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no bar files found in %s", dir)
	}

	p := &CSVProvider{bars: make(map[string][]domain.Bar, len(paths))}
	for _, path := range paths {
		ticker := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), ".csv"))
		bars, err := loadBars(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load bars for %s: %w", ticker, err)
		}
		p.bars[ticker] = bars
		logger.Debug("Loaded bars", zap.String("ticker", ticker), zap.Int("count", len(bars)))
	}

	logger.Info("Market data loaded", zap.Int("tickers", len(p.bars)))
	return p, nil
}

// NewStaticProvider wraps an already materialized bar map. Used by
// tests and by callers that fetch data themselves.
func NewStaticProvider(bars map[string][]domain.Bar) *CSVProvider {
	return &CSVProvider{bars: bars}
}

func (p *CSVProvider) Bars(ticker string) ([]domain.Bar, bool) {
	bars, ok := p.bars[ticker]
	return bars, ok
}

func (p *CSVProvider) Tickers() []string {
	tickers := make([]string, 0, len(p.bars))
	for t := range p.bars {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

func loadBars(path string) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	cols, err := columnIndex(records[0], "date", "open", "high", "low", "close", "volume")
	if err != nil {
		return nil, err
	}

	bars := make([]domain.Bar, 0, len(records)-1)
	for i, rec := range records[1:] {
		date, err := time.Parse(dateLayout, rec[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad date %q: %w", i+2, rec[cols["date"]], err)
		}
		bar := domain.Bar{Date: date}
		for name, dst := range map[string]*float64{
			"open": &bar.Open, "high": &bar.High, "low": &bar.Low,
			"close": &bar.Close, "volume": &bar.Volume,
		} {
			v, err := strconv.ParseFloat(rec[cols[name]], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad %s %q: %w", i+2, name, rec[cols[name]], err)
			}
			*dst = v
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// LoadSignalsCSV reads an entry-signal table: a CSV with a
// date,ticker,entry_price,stop_loss,target header plus optional
// pattern_id and score columns.
func LoadSignalsCSV(path string) ([]domain.Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("no signal rows in %s", path)
	}

	cols, err := columnIndex(records[0], "date", "ticker", "entry_price", "stop_loss", "target")
	if err != nil {
		return nil, err
	}
	optional := optionalColumns(records[0], "pattern_id", "score")

	signals := make([]domain.Signal, 0, len(records)-1)
	for i, rec := range records[1:] {
		date, err := time.Parse(dateLayout, rec[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad date %q: %w", i+2, rec[cols["date"]], err)
		}

		sig := domain.Signal{
			ID:     uuid.NewString(),
			Ticker: strings.ToUpper(rec[cols["ticker"]]),
			Date:   date,
		}
		for name, dst := range map[string]*float64{
			"entry_price": &sig.EntryPrice, "stop_loss": &sig.StopLoss, "target": &sig.Target,
		} {
			v, err := strconv.ParseFloat(rec[cols[name]], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad %s %q: %w", i+2, name, rec[cols[name]], err)
			}
			*dst = v
		}
		if idx, ok := optional["pattern_id"]; ok {
			sig.PatternID = rec[idx]
		}
		if idx, ok := optional["score"]; ok && rec[idx] != "" {
			if v, err := strconv.ParseFloat(rec[idx], 64); err == nil {
				sig.Score = v
			}
		}
		signals = append(signals, sig)
	}

	return signals, nil
}

func columnIndex(header []string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return cols, nil
}

func optionalColumns(header []string, names ...string) map[string]int {
	cols := make(map[string]int)
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	out := make(map[string]int)
	for _, n := range names {
		if idx, ok := cols[n]; ok {
			out[n] = idx
		}
	}
	return out
}
