package domain

import "time"

// ExitReason explains why a position was closed.
type ExitReason string

const (
	ExitStopHit       ExitReason = "STOP_HIT"
	ExitTargetHit     ExitReason = "TARGET_HIT"
	ExitTimeStop      ExitReason = "TIME_STOP"
	ExitEndOfBacktest ExitReason = "END_OF_BACKTEST"
	ExitNone          ExitReason = ""
)

// Position represents an open simulated trade. EntryPrice is the
// slippage-adjusted fill price, not the signal's advisory price.
type Position struct {
	Ticker       string
	EntryDate    time.Time
	EntryPrice   float64
	Shares       int
	StopLoss     float64
	Target       float64
	PatternID    string
	DaysHeld     int
	CurrentPrice float64
	MaxGainPct   float64
	MaxLossPct   float64
}

// Update advances the position by one trading day using that day's bar.
func (p *Position) Update(bar Bar) {
	p.CurrentPrice = bar.Close
	p.DaysHeld++

	gainPct := (bar.High - p.EntryPrice) / p.EntryPrice * 100
	lossPct := (bar.Low - p.EntryPrice) / p.EntryPrice * 100

	if gainPct > p.MaxGainPct {
		p.MaxGainPct = gainPct
	}
	if lossPct < p.MaxLossPct {
		p.MaxLossPct = lossPct
	}
}

// CheckExit evaluates exit conditions against the day's bar.
// The stop is checked against the low before the target is checked
// against the high: when both are touched on the same bar the intraday
// order is unknown, so the stop wins. This tie-break decides which
// trades count as losses and must not be reordered.
func (p *Position) CheckExit(bar Bar, maxDays int) (bool, ExitReason, float64) {
	if bar.Low <= p.StopLoss {
		return true, ExitStopHit, p.StopLoss
	}
	if bar.High >= p.Target {
		return true, ExitTargetHit, p.Target
	}
	if p.DaysHeld >= maxDays {
		return true, ExitTimeStop, bar.Close
	}
	return false, ExitNone, 0
}

// PnLBreakdown is the costed outcome of closing a position.
type PnLBreakdown struct {
	GrossPnL  float64
	Costs     float64
	NetPnL    float64
	NetPnLPct float64
}

// PnL prices the position against an exit fill. The round-trip cost is
// deducted in full here; the engine does not split it across legs.
func (p *Position) PnL(exitPrice float64, costs CostBreakdown) PnLBreakdown {
	gross := (exitPrice - p.EntryPrice) * float64(p.Shares)
	total := costs.TotalRoundTrip
	net := gross - total

	return PnLBreakdown{
		GrossPnL:  gross,
		Costs:     total,
		NetPnL:    net,
		NetPnLPct: net / (p.EntryPrice * float64(p.Shares)) * 100,
	}
}

// Trade is the immutable record of a closed position.
type Trade struct {
	Ticker      string
	PatternID   string
	EntryDate   time.Time
	EntryPrice  float64
	ExitDate    time.Time
	ExitPrice   float64
	Shares      int
	HoldingDays int
	ExitReason  ExitReason
	GrossPnL    float64
	Costs       float64
	NetPnL      float64
	NetPnLPct   float64
	MaxGainPct  float64
	MaxLossPct  float64
}
