// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

// CostBreakdown contains the estimated execution costs for one trade.
type CostBreakdown struct {
	TradingFee decimal.Decimal `json:"tradingFee"`
	Slippage   decimal.Decimal `json:"slippage"`
	GasCost    decimal.Decimal `json:"gasCost"`
	Total      decimal.Decimal `json:"total"`
}

// GasQuoter supplies a live USD gas cost estimate. ok is false when no
// live estimate is available.
type GasQuoter interface {
	GasUSD() (usd decimal.Decimal, ok bool)
}

// CostModelParams configures a CostModel.
type CostModelParams struct {
	TradingFeeBps  decimal.Decimal
	SlippageMinBps decimal.Decimal
	SlippageMaxBps decimal.Decimal
	GasMinUSD      decimal.Decimal
	GasMaxUSD      decimal.Decimal
}

// CostModel estimates trading fee, slippage and gas for a simulated trade.
// Gas comes from the quoter when available, otherwise from a uniform draw
// over the configured band. Either way it is clamped to the band.
type CostModel struct {
	params CostModelParams
	rng    *rand.Rand
	quoter GasQuoter
}

// NewCostModel creates a cost model. quoter may be nil.
func NewCostModel(params CostModelParams, rng *rand.Rand, quoter GasQuoter) *CostModel {
	return &CostModel{params: params, rng: rng, quoter: quoter}
}

// Estimate computes the cost breakdown for a trade of the given notional
// at the given spread. All components are non-negative and Total is their
// sum.
func (m *CostModel) Estimate(notional, spreadBps decimal.Decimal) CostBreakdown {
	bps := decimal.NewFromInt(10000)

	fee := notional.Mul(m.params.TradingFeeBps).Div(bps)

	// Wider spreads cost more to cross.
	slipBps := spreadBps.Mul(decimal.RequireFromString("0.3"))
	if slipBps.LessThan(m.params.SlippageMinBps) {
		slipBps = m.params.SlippageMinBps
	}
	if slipBps.GreaterThan(m.params.SlippageMaxBps) {
		slipBps = m.params.SlippageMaxBps
	}
	slippage := notional.Mul(slipBps).Div(bps)

	gas := m.gasUSD()

	return CostBreakdown{
		TradingFee: fee,
		Slippage:   slippage,
		GasCost:    gas,
		Total:      fee.Add(slippage).Add(gas),
	}
}

// MaxGasUSD returns the upper bound of the gas band.
func (m *CostModel) MaxGasUSD() decimal.Decimal {
	return m.params.GasMaxUSD
}

func (m *CostModel) gasUSD() decimal.Decimal {
	if m.quoter != nil {
		if usd, ok := m.quoter.GasUSD(); ok {
			return clampDecimal(usd, m.params.GasMinUSD, m.params.GasMaxUSD)
		}
	}

	span := m.params.GasMaxUSD.Sub(m.params.GasMinUSD).InexactFloat64()
	draw := m.params.GasMinUSD.Add(decimal.NewFromFloat(m.rng.Float64() * span))
	return clampDecimal(draw, m.params.GasMinUSD, m.params.GasMaxUSD)
}

func clampDecimal(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
