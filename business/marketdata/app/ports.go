// Package app coordinates live and synthetic market data sources.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"arbsim/business/marketdata/domain"
)

// SpotFetcher fetches live USD spot prices for all known assets.
type SpotFetcher interface {
	SpotPrices(ctx context.Context) (map[string]domain.SpotPrice, error)
}

// QuoteGenerator produces synthetic spot prices and per-venue quotes.
type QuoteGenerator interface {
	SpotPrices() map[string]domain.SpotPrice
	Quotes(exchanges []string, symbol string, spot decimal.Decimal) []domain.Quote
}
