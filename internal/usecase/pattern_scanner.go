package usecase

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	talib "github.com/markcheno/go-talib"
	"github.com/quantnse/pattern_backtest/internal/domain"
	"go.uber.org/zap"
)

// Candlestick pattern names, kept compatible with the TA-Lib CDL
// naming so stored pattern types line up with the historical database.
const (
	PatternHammer       = "CDLHAMMER"
	PatternShootingStar = "CDLSHOOTINGSTAR"
	PatternEngulfing    = "CDLENGULFING"
	PatternPiercing     = "CDLPIERCING"
	PatternDarkCloud    = "CDLDARKCLOUDCOVER"
	PatternMarubozu     = "CDLMARUBOZU"
	PatternDoji         = "CDLDOJI"
)

// Candle geometry thresholds, as fractions of the bar's range.
const (
	dojiMaxBody     = 0.10
	hammerLowerMin  = 0.60
	hammerUpperMax  = 0.15
	hammerBodyMin   = 0.15
	marubozuBodyMin = 0.80
	marubozuWickMax = 0.10
	engulfBodyRatio = 1.20

	indicatorPeriod = 14
	volumeMAPeriod  = 20

	// Default trade levels relative to the detection close.
	defaultStopPct   = 0.98
	defaultTargetPct = 1.05
)

// PatternScanner detects candlestick patterns on daily bars and turns
// bullish detections into entry signals. Indicator context (RSI, ATR,
// volume ratio) is computed with go-talib and attached to every hit.
type PatternScanner struct {
	exchange      string
	minConfidence float64
	logger        *zap.Logger
}

func NewPatternScanner(exchange string, minConfidence float64, logger *zap.Logger) *PatternScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatternScanner{
		exchange:      exchange,
		minConfidence: minConfidence,
		logger:        logger,
	}
}

// Scan walks the bar series and returns every pattern occurrence at or
// above the configured confidence.
func (s *PatternScanner) Scan(ticker string, bars []domain.Bar) []domain.PatternHit {
	if len(bars) == 0 {
		return nil
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i], lows[i], closes[i], volumes[i] = b.High, b.Low, b.Close, b.Volume
	}

	var rsi, atr, volMA []float64
	if len(bars) > indicatorPeriod {
		rsi = talib.Rsi(closes, indicatorPeriod)
		atr = talib.Atr(highs, lows, closes, indicatorPeriod)
	}
	if len(bars) >= volumeMAPeriod {
		volMA = talib.Sma(volumes, volumeMAPeriod)
	}

	var hits []domain.PatternHit
	for i := range bars {
		for _, match := range matchPatterns(bars, i) {
			if match.confidence < s.minConfidence {
				continue
			}

			hit := domain.PatternHit{
				ID:         patternID(ticker, match.name, bars[i].Date),
				Ticker:     ticker,
				Exchange:   s.exchange,
				Pattern:    match.name,
				Direction:  match.direction,
				Date:       bars[i].Date,
				Confidence: match.confidence,
				Close:      bars[i].Close,
				Volume:     bars[i].Volume,
			}
			if rsi != nil {
				hit.RSI14 = rsi[i]
				hit.ATR14 = atr[i]
			}
			if volMA != nil && volMA[i] > 0 {
				hit.VolumeRatio = bars[i].Volume / volMA[i]
			}
			hits = append(hits, hit)
		}
	}

	s.logger.Info("Pattern scan complete",
		zap.String("ticker", ticker),
		zap.Int("bars", len(bars)),
		zap.Int("hits", len(hits)))

	return hits
}

// BuildSignals converts bullish pattern hits into entry signals using
// the default level rules: entry at the detection close, stop 2% below
// it, target 5% above it.
func (s *PatternScanner) BuildSignals(hits []domain.PatternHit) []domain.Signal {
	var signals []domain.Signal
	for _, hit := range hits {
		if hit.Direction != domain.DirectionBullish {
			continue
		}
		signals = append(signals, domain.Signal{
			ID:         uuid.NewString(),
			Ticker:     hit.Ticker,
			Date:       hit.Date,
			EntryPrice: hit.Close,
			StopLoss:   hit.Close * defaultStopPct,
			Target:     hit.Close * defaultTargetPct,
			PatternID:  hit.ID,
			Score:      hit.Confidence,
		})
	}
	return signals
}

func patternID(ticker, pattern string, date time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s", ticker, pattern, date.Format("20060102"), uuid.New().String()[:8])
}

type patternMatch struct {
	name       string
	direction  string
	confidence float64
}

type candleParts struct {
	body, upper, lower, rng     float64
	bodyPct, upperPct, lowerPct float64
	isBull, isBear, isDoji      bool
}

func splitCandle(b domain.Bar) candleParts {
	rng := b.High - b.Low
	if rng <= 0 {
		rng = 1e-9
	}
	body := math.Abs(b.Close - b.Open)
	upper := b.High - math.Max(b.Close, b.Open)
	lower := math.Min(b.Close, b.Open) - b.Low

	cp := candleParts{
		body: body, upper: upper, lower: lower, rng: rng,
		bodyPct:  body / rng,
		upperPct: upper / rng,
		lowerPct: lower / rng,
		isBull:   b.Close > b.Open,
		isBear:   b.Open > b.Close,
	}
	cp.isDoji = cp.bodyPct <= dojiMaxBody
	return cp
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// matchPatterns runs every detector against bar i of the series.
func matchPatterns(bars []domain.Bar, i int) []patternMatch {
	cp := splitCandle(bars[i])

	var out []patternMatch

	if ok, s := matchHammer(cp); ok {
		out = append(out, patternMatch{PatternHammer, domain.DirectionBullish, s})
	}
	if ok, s := matchShootingStar(cp); ok {
		out = append(out, patternMatch{PatternShootingStar, domain.DirectionBearish, s})
	}
	if bull, bear, s := matchMarubozu(cp); bull {
		out = append(out, patternMatch{PatternMarubozu, domain.DirectionBullish, s})
	} else if bear {
		out = append(out, patternMatch{PatternMarubozu, domain.DirectionBearish, s})
	}
	if cp.isDoji {
		out = append(out, patternMatch{PatternDoji, domain.DirectionBullish, 0.5})
	}

	if i >= 1 {
		prev := splitCandle(bars[i-1])

		if ok, s := matchEngulfing(prev, cp, bars[i-1], bars[i], true); ok {
			out = append(out, patternMatch{PatternEngulfing, domain.DirectionBullish, s})
		}
		if ok, s := matchEngulfing(prev, cp, bars[i-1], bars[i], false); ok {
			out = append(out, patternMatch{PatternEngulfing, domain.DirectionBearish, s})
		}
		if matchPiercing(prev, cp, bars[i-1], bars[i]) {
			out = append(out, patternMatch{PatternPiercing, domain.DirectionBullish, 0.6})
		}
		if matchDarkCloud(prev, cp, bars[i-1], bars[i]) {
			out = append(out, patternMatch{PatternDarkCloud, domain.DirectionBearish, 0.6})
		}
	}

	return out
}

func matchHammer(cp candleParts) (bool, float64) {
	if cp.isDoji || cp.bodyPct < hammerBodyMin {
		return false, 0
	}
	if cp.lowerPct < hammerLowerMin || cp.upperPct > hammerUpperMax {
		return false, 0
	}
	s := 0.6*clamp01((cp.lowerPct-hammerLowerMin)/(1.0-hammerLowerMin)) +
		0.4*clamp01((cp.bodyPct-hammerBodyMin)/(1.0-hammerBodyMin))
	return true, clamp01(s)
}

func matchShootingStar(cp candleParts) (bool, float64) {
	if cp.upperPct < hammerLowerMin || cp.lowerPct > hammerUpperMax {
		return false, 0
	}
	upperScore := clamp01((cp.upperPct - hammerLowerMin) / (1.0 - hammerLowerMin))
	lowerScore := clamp01((hammerUpperMax - cp.lowerPct) / hammerUpperMax)
	return true, clamp01(0.7*upperScore + 0.3*lowerScore)
}

func matchMarubozu(cp candleParts) (bull, bear bool, strength float64) {
	if cp.bodyPct < marubozuBodyMin {
		return false, false, 0
	}
	if cp.upperPct > marubozuWickMax || cp.lowerPct > marubozuWickMax {
		return false, false, 0
	}
	str := clamp01((cp.bodyPct - marubozuBodyMin) / (1.0 - marubozuBodyMin))
	return cp.isBull, cp.isBear, str
}

func matchEngulfing(cp1, cp2 candleParts, b1, b2 domain.Bar, bullish bool) (bool, float64) {
	if bullish {
		if !(cp1.isBear && cp2.isBull) {
			return false, 0
		}
		if !((b2.Close > b1.Open && b2.Open < b1.Close) || cp2.body >= engulfBodyRatio*cp1.body) {
			return false, 0
		}
	} else {
		if !(cp1.isBull && cp2.isBear) {
			return false, 0
		}
		if !((b2.Open > b1.Close && b2.Close < b1.Open) || cp2.body >= engulfBodyRatio*cp1.body) {
			return false, 0
		}
	}
	ratio := clamp01(cp2.body / (cp1.body + 1e-9) / engulfBodyRatio)
	return true, clamp01(0.5 + 0.5*ratio)
}

func matchPiercing(cp1, cp2 candleParts, b1, b2 domain.Bar) bool {
	if !(cp1.isBear && cp2.isBull) {
		return false
	}
	mid := (b1.Open + b1.Close) / 2
	return b2.Open < b1.Close && b2.Close > mid
}

func matchDarkCloud(cp1, cp2 candleParts, b1, b2 domain.Bar) bool {
	if !(cp1.isBull && cp2.isBear) {
		return false
	}
	mid := (b1.Open + b1.Close) / 2
	return b2.Open > b1.Close && b2.Close < mid
}
