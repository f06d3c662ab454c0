package domain

import "time"

// Bar is a single daily OHLCV bar for one ticker.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Signal is an entry candidate produced by the pattern pipeline.
// EntryPrice is advisory only: fills are always re-priced at the next
// trading day's open by the engine.
type Signal struct {
	ID         string
	Ticker     string
	Date       time.Time
	EntryPrice float64
	StopLoss   float64
	Target     float64
	PatternID  string
	Score      float64
}

// PatternHit is a single candlestick pattern occurrence on a bar.
type PatternHit struct {
	ID         string
	Ticker     string
	Exchange   string
	Pattern    string // TA-Lib pattern name, e.g. CDLENGULFING
	Direction  string // "BULLISH" or "BEARISH"
	Date       time.Time
	Confidence float64 // normalized 0-1
	Close      float64
	Volume     float64

	// Technical context at detection time.
	RSI14       float64
	ATR14       float64
	VolumeRatio float64
}

const (
	DirectionBullish = "BULLISH"
	DirectionBearish = "BEARISH"
)
