package usecase

import "github.com/quantnse/pattern_backtest/internal/domain"

// CostConfig holds the NSE/BSE per-leg cost rates. Rates are fractions
// of notional except BrokerageCap, which is an absolute rupee ceiling.
type CostConfig struct {
	BrokeragePct         float64 `yaml:"brokerage_pct"`
	IntradayBrokeragePct float64 `yaml:"intraday_brokerage_pct"`
	BrokerageCap         float64 `yaml:"brokerage_cap"`
	STTPct               float64 `yaml:"stt_pct"`
	ExchangePct          float64 `yaml:"exchange_pct"`
	GSTPct               float64 `yaml:"gst_pct"`
	SEBIPct              float64 `yaml:"sebi_pct"`
	StampDutyPct         float64 `yaml:"stamp_duty_pct"`
}

// DefaultCostConfig returns the standard Indian discount-broker rate
// card: 0.05% delivery brokerage capped at Rs.20, 0.1% STT, NSE
// exchange charge, 18% GST on brokerage+exchange, SEBI turnover fee
// and 0.015% stamp duty.
func DefaultCostConfig() CostConfig {
	return CostConfig{
		BrokeragePct:         0.0005,
		IntradayBrokeragePct: 0.0003,
		BrokerageCap:         20,
		STTPct:               0.001,
		ExchangePct:          0.0000325,
		GSTPct:               0.18,
		SEBIPct:              0.0000001,
		StampDutyPct:         0.00015,
	}
}

// Calculate itemizes transaction costs for one leg of the given
// notional value. The swing pipeline always passes intraday=false.
func (c CostConfig) Calculate(tradeValue float64, intraday bool) domain.CostBreakdown {
	var b domain.CostBreakdown

	brokeragePct := c.BrokeragePct
	if intraday {
		brokeragePct = c.IntradayBrokeragePct
	}
	b.Brokerage = tradeValue * brokeragePct
	if b.Brokerage > c.BrokerageCap {
		b.Brokerage = c.BrokerageCap
	}

	b.STT = tradeValue * c.STTPct
	b.Exchange = tradeValue * c.ExchangePct
	b.GST = (b.Brokerage + b.Exchange) * c.GSTPct
	b.SEBI = tradeValue * c.SEBIPct
	b.StampDuty = tradeValue * c.StampDutyPct

	b.TotalOneWay = b.Brokerage + b.STT + b.Exchange + b.GST + b.SEBI + b.StampDuty
	b.TotalRoundTrip = b.TotalOneWay * 2

	return b
}
