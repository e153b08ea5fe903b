// Package app implements opportunity scanning and trade simulation.
package app

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"arbsim/business/arbitrage/domain"
	mddomain "arbsim/business/marketdata/domain"
	"arbsim/internal/apperror"
)

// Scanner finds cross-exchange arbitrage opportunities in a quote set.
type Scanner struct {
	logger *slog.Logger
}

// NewScanner creates a scanner.
func NewScanner(logger *slog.Logger) *Scanner {
	return &Scanner{logger: logger}
}

// Scan compares every ordered pair of venues and returns opportunities
// where the sell venue's bid exceeds the buy venue's ask, sorted by
// estimated profit descending. Invalid quotes are skipped; fewer than two
// valid quotes yields an empty result.
func (s *Scanner) Scan(quotes []mddomain.Quote, notional decimal.Decimal) ([]domain.Opportunity, error) {
	if !notional.IsPositive() {
		return nil, apperror.New(apperror.CodeInvalidNotional,
			apperror.WithContext(fmt.Sprintf("notional %s", notional)))
	}

	valid := quotes[:0:0]
	for _, q := range quotes {
		if err := q.Validate(); err != nil {
			s.logger.Debug("skipping invalid quote",
				"exchange", q.Exchange, "symbol", q.Symbol, "error", err)
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) < 2 {
		return nil, nil
	}

	now := time.Now()
	var opps []domain.Opportunity
	for i, buy := range valid {
		for j, sell := range valid {
			if i == j || buy.Exchange == sell.Exchange {
				continue
			}

			spread := sell.Bid.Sub(buy.Ask)
			if !spread.IsPositive() {
				continue
			}

			spreadPct := spread.Div(buy.Ask)
			opps = append(opps, domain.Opportunity{
				Symbol:          buy.Symbol,
				BuyExchange:     buy.Exchange,
				SellExchange:    sell.Exchange,
				BuyPrice:        buy.Ask,
				SellPrice:       sell.Bid,
				SpreadAbs:       spread,
				SpreadPct:       spreadPct,
				Notional:        notional,
				EstimatedProfit: notional.Mul(spreadPct),
				Timestamp:       now,
			})
		}
	}

	sort.SliceStable(opps, func(a, b int) bool {
		return opps[a].EstimatedProfit.GreaterThan(opps[b].EstimatedProfit)
	})
	return opps, nil
}
