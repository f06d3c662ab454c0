package marketdata_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/quantnse/pattern_backtest/internal/infrastructure/marketdata"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewCSVProvider(t *testing.T) {
	dir := t.TempDir()
	// Rows out of order on purpose.
	writeFile(t, dir, "tcs.csv", `date,open,high,low,close,volume
2024-06-05,101,103,100,102,12000
2024-06-04,100,102,99,101,10000
`)
	writeFile(t, dir, "INFY.csv", `date,open,high,low,close,volume
2024-06-04,1500,1520,1490,1510,50000
`)

	p, err := marketdata.NewCSVProvider(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"INFY", "TCS"}, p.Tickers())

	bars, ok := p.Bars("TCS")
	require.True(t, ok)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.InDelta(t, 100.0, bars[0].Open, 1e-9)
	assert.InDelta(t, 102.0, bars[1].Close, 1e-9)
	assert.InDelta(t, 12000.0, bars[1].Volume, 1e-9)

	_, ok = p.Bars("RELIANCE")
	assert.False(t, ok)
}

func TestNewCSVProviderEmptyDir(t *testing.T) {
	_, err := marketdata.NewCSVProvider(t.TempDir(), nil)
	assert.Error(t, err)
}

func TestLoadBarsMissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tcs.csv", `date,open,high,low,close
2024-06-04,100,102,99,101
`)

	_, err := marketdata.NewCSVProvider(dir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volume")
}

func TestLoadBarsBadDate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tcs.csv", `date,open,high,low,close,volume
04-06-2024,100,102,99,101,10000
`)

	_, err := marketdata.NewCSVProvider(dir, nil)
	assert.Error(t, err)
}

func TestLoadSignalsCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "signals.csv", `date,ticker,entry_price,stop_loss,target,pattern_id,score
2024-06-03,tcs,100,95,110,TCS_CDLHAMMER_20240603_abcd1234,0.82
2024-06-04,INFY,1500,1470,1575,,
`)

	signals, err := marketdata.LoadSignalsCSV(path)
	require.NoError(t, err)
	require.Len(t, signals, 2)

	first := signals[0]
	assert.Equal(t, "TCS", first.Ticker)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), first.Date)
	assert.InDelta(t, 100.0, first.EntryPrice, 1e-9)
	assert.InDelta(t, 95.0, first.StopLoss, 1e-9)
	assert.InDelta(t, 110.0, first.Target, 1e-9)
	assert.Equal(t, "TCS_CDLHAMMER_20240603_abcd1234", first.PatternID)
	assert.InDelta(t, 0.82, first.Score, 1e-9)
	assert.NotEmpty(t, first.ID)

	second := signals[1]
	assert.Equal(t, "INFY", second.Ticker)
	assert.Empty(t, second.PatternID)
	assert.Zero(t, second.Score)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestLoadSignalsCSVWithoutOptionalColumns(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "signals.csv", `date,ticker,entry_price,stop_loss,target
2024-06-03,TCS,100,95,110
`)

	signals, err := marketdata.LoadSignalsCSV(path)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Empty(t, signals[0].PatternID)
}

func TestLoadSignalsCSVMissingRequiredColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "signals.csv", `date,ticker,entry_price
2024-06-03,TCS,100
`)

	_, err := marketdata.LoadSignalsCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop_loss")
}
