package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is one point on the portfolio equity curve.
type Snapshot struct {
	Timestamp      time.Time                  `json:"timestamp"`
	TotalValue     decimal.Decimal            `json:"totalValue"`
	CashBalance    decimal.Decimal            `json:"balance"`
	Positions      map[string]decimal.Decimal `json:"positions"`
	DailyReturnPct float64                    `json:"dailyReturn"`
	TradeCount     int                        `json:"tradesCount"`
}

// ClonePositions returns a defensive copy of a positions map.
func ClonePositions(positions map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(positions))
	for k, v := range positions {
		out[k] = v
	}
	return out
}
