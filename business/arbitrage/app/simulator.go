package app

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"arbsim/business/arbitrage/domain"
	pfdomain "arbsim/business/portfolio/domain"
)

// Simulator evaluates an opportunity against the current portfolio and
// produces the complete outcome of the simulated trade, costs and success
// draw included. The ledger only has to apply the finished record.
type Simulator struct {
	costs  *domain.CostModel
	rng    *rand.Rand
	logger *slog.Logger
}

// NewSimulator creates a simulator backed by the given random source.
func NewSimulator(costs *domain.CostModel, rng *rand.Rand, logger *slog.Logger) *Simulator {
	return &Simulator{costs: costs, rng: rng, logger: logger}
}

// minProfitThreshold is the minimum spread in percent units worth trading.
// Larger portfolios can take thinner margins.
func minProfitThreshold(portfolioValue decimal.Decimal) decimal.Decimal {
	switch {
	case portfolioValue.LessThan(decimal.NewFromInt(10000)):
		return decimal.RequireFromString("0.6")
	case portfolioValue.LessThan(decimal.NewFromInt(50000)):
		return decimal.RequireFromString("0.4")
	case portfolioValue.LessThan(decimal.NewFromInt(100000)):
		return decimal.RequireFromString("0.3")
	default:
		return decimal.RequireFromString("0.25")
	}
}

// Evaluate runs the full trade simulation for the opportunity. executed is
// false when the opportunity is skipped (thin spread or unprofitable after
// costs); in that case no record is returned.
func (s *Simulator) Evaluate(opp domain.Opportunity, portfolioValue decimal.Decimal) (rec *pfdomain.TradeRecord, executed bool, err error) {
	profitPct := opp.ProfitPercent()

	threshold := minProfitThreshold(portfolioValue)
	if profitPct.LessThan(threshold) {
		s.logger.Debug("trade skipped below threshold",
			"profit_pct", profitPct, "threshold", threshold)
		return nil, false, nil
	}

	size := s.tradeSize(portfolioValue)
	gross := size.Mul(profitPct).Div(decimal.NewFromInt(100))

	costs := s.costs.Estimate(size, opp.SpreadBps())
	net := gross.Sub(costs.Total)
	if !net.IsPositive() {
		s.logger.Debug("trade skipped unprofitable after costs",
			"gross", gross, "costs", costs.Total)
		return nil, false, nil
	}

	success := s.rng.Float64() < s.successRate(profitPct, portfolioValue)
	if success {
		// Execution variance of ±15% around the expected net.
		variance := 0.85 + s.rng.Float64()*0.3
		net = net.Mul(decimal.NewFromFloat(variance))
	} else {
		// Gas is sunk on a failed execution.
		net = costs.GasCost.Neg()
	}

	rec, err = pfdomain.NewTradeRecord(pfdomain.TradeParams{
		Pair:         opp.Symbol,
		BuyExchange:  opp.BuyExchange,
		SellExchange: opp.SellExchange,
		TradeAmount:  size,
		GrossProfit:  gross,
		NetProfit:    net,
		Costs:        costs,
		Success:      success,
	})
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// tradeSize picks a portfolio-proportional size: 2-8% of value, floored at
// $100 or 0.5% of value and capped at 15% of value or twice the base draw.
func (s *Simulator) tradeSize(portfolioValue decimal.Decimal) decimal.Decimal {
	riskFrac := 0.02 + s.rng.Float64()*0.06
	base := portfolioValue.Mul(decimal.NewFromFloat(riskFrac))

	minSize := decimal.NewFromInt(100)
	if half := portfolioValue.Mul(decimal.RequireFromString("0.005")); half.GreaterThan(minSize) {
		minSize = half
	}
	maxSize := portfolioValue.Mul(decimal.RequireFromString("0.15"))
	if twice := base.Mul(decimal.NewFromInt(2)); twice.LessThan(maxSize) {
		maxSize = twice
	}

	size := base
	if size.GreaterThan(maxSize) {
		size = maxSize
	}
	if size.LessThan(minSize) {
		size = minSize
	}
	return size
}

// successRate grows with the spread and the portfolio size, capped at 98%.
func (s *Simulator) successRate(profitPct, portfolioValue decimal.Decimal) float64 {
	spreadBonus := math.Min(0.04, profitPct.InexactFloat64()*0.01)
	portfolioBonus := math.Min(0.02, math.Log10(portfolioValue.InexactFloat64()/1000)*0.01)
	return math.Min(0.98, 0.94+spreadBonus+portfolioBonus)
}
