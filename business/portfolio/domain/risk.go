package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// RiskMetrics summarizes portfolio performance. Statistical fields are
// float64; decimal carries no sqrt or log.
type RiskMetrics struct {
	TotalReturnPct float64 `json:"totalReturn"`
	AvgDailyReturn float64 `json:"avgDailyReturn"`
	Volatility     float64 `json:"volatility"`
	SharpeRatio    float64 `json:"sharpeRatio"`
	MaxDrawdownPct float64 `json:"maxDrawdown"`
	WinRate        float64 `json:"winRate"`
	BestTrade      float64 `json:"bestTrade"`
	WorstTrade     float64 `json:"worstTrade"`
	TotalTrades    int     `json:"totalTrades"`
}

// ComputeRiskMetrics derives metrics from the return series, the equity
// curve and the trade history. Fewer than two returns yields zero-valued
// metrics (aside from the trade count).
func ComputeRiskMetrics(returns []float64, curve []Snapshot, trades []*TradeRecord, startingBalance, totalValue decimal.Decimal, riskFreeRate float64) RiskMetrics {
	m := RiskMetrics{TotalTrades: len(trades)}
	if len(returns) < 2 {
		return m
	}

	if startingBalance.IsPositive() {
		m.TotalReturnPct = totalValue.Sub(startingBalance).
			Div(startingBalance).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	avg := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - avg) * (r - avg)
	}
	variance /= float64(len(returns))
	vol := math.Sqrt(variance)

	m.AvgDailyReturn = avg
	m.Volatility = vol
	if vol > 0 {
		m.SharpeRatio = (avg - riskFreeRate) / vol
	}

	peak := startingBalance.InexactFloat64()
	for _, snap := range curve {
		v := snap.TotalValue.InexactFloat64()
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100; dd > m.MaxDrawdownPct {
				m.MaxDrawdownPct = dd
			}
		}
	}

	wins := 0
	for i, t := range trades {
		profit := t.NetProfit.InexactFloat64()
		if t.Success && profit > 0 {
			wins++
		}
		if i == 0 || profit > m.BestTrade {
			m.BestTrade = profit
		}
		if i == 0 || profit < m.WorstTrade {
			m.WorstTrade = profit
		}
	}
	if len(trades) > 0 {
		m.WinRate = float64(wins) / float64(len(trades)) * 100
	}

	return m
}
