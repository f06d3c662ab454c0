package usecase

import "github.com/quantnse/pattern_backtest/internal/domain"

// ComputeMetrics aggregates a trade list and equity curve into summary
// statistics. Pure function: calling it twice on the same inputs gives
// identical output. Zero-PnL trades count as neither wins nor losses.
func ComputeMetrics(trades []domain.Trade, equity []domain.EquityPoint) domain.Metrics {
	var m domain.Metrics

	m.TotalTrades = len(trades)

	var grossProfit, grossLoss float64
	var holdingDays int
	for _, t := range trades {
		m.TotalPnL += t.NetPnL
		holdingDays += t.HoldingDays
		if t.NetPnL > 0 {
			m.WinningTrades++
			grossProfit += t.NetPnL
		} else if t.NetPnL < 0 {
			m.LosingTrades++
			grossLoss += -t.NetPnL
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
		m.AvgHoldingDays = float64(holdingDays) / float64(m.TotalTrades)
	}
	if m.WinningTrades > 0 {
		m.AvgWin = grossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = -grossLoss / float64(m.LosingTrades)
	}
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	}

	m.MaxDrawdown = maxDrawdown(equity)
	if len(equity) > 0 {
		m.FinalEquity = equity[len(equity)-1].Equity
	}

	return m
}

// maxDrawdown is the worst decline from a running equity peak, in
// percent. Always <= 0.
func maxDrawdown(equity []domain.EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0].Equity
	var dd float64
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if d := (p.Equity - peak) / peak * 100; d < dd {
				dd = d
			}
		}
	}
	return dd
}
