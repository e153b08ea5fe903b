// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Opportunity represents a detected cross-exchange arbitrage opportunity:
// buy at BuyExchange's ask, sell at SellExchange's bid.
type Opportunity struct {
	Symbol          string
	BuyExchange     string
	SellExchange    string
	BuyPrice        decimal.Decimal // ask at the buy venue
	SellPrice       decimal.Decimal // bid at the sell venue
	SpreadAbs       decimal.Decimal
	SpreadPct       decimal.Decimal // fraction, e.g. 0.0039 for 0.39%
	Notional        decimal.Decimal
	EstimatedProfit decimal.Decimal
	Timestamp       time.Time
}

// ProfitPercent returns the spread as percent units (0.39 for 0.39%).
func (o Opportunity) ProfitPercent() decimal.Decimal {
	return o.SpreadPct.Mul(decimal.NewFromInt(100))
}

// SpreadBps returns the spread in basis points.
func (o Opportunity) SpreadBps() decimal.Decimal {
	return o.SpreadPct.Mul(decimal.NewFromInt(10000))
}
