// Package domain contains market data types for the virtual exchange venues.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"arbsim/internal/apperror"
)

// Quote is a bid/ask quote for a trading pair on one exchange.
type Quote struct {
	Exchange  string
	Symbol    string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Timestamp time.Time
}

// Validate checks the quote for usable prices.
func (q Quote) Validate() error {
	if q.Exchange == "" || q.Symbol == "" {
		return apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext("missing exchange or symbol"))
	}
	if !q.Bid.IsPositive() || !q.Ask.IsPositive() {
		return apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("%s %s: non-positive price bid=%s ask=%s",
				q.Exchange, q.Symbol, q.Bid, q.Ask)))
	}
	if q.Bid.GreaterThan(q.Ask) {
		return apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("%s %s: bid %s above ask %s",
				q.Exchange, q.Symbol, q.Bid, q.Ask)))
	}
	return nil
}

// Mid returns the midpoint price.
func (q Quote) Mid() decimal.Decimal {
	return q.Bid.Add(q.Ask).Div(decimal.NewFromInt(2))
}

// BaseAsset returns the base asset of a "BASE/QUOTE" symbol.
func BaseAsset(symbol string) string {
	if i := strings.Index(symbol, "/"); i > 0 {
		return symbol[:i]
	}
	return symbol
}

// QuoteAsset returns the quote asset of a "BASE/QUOTE" symbol.
func QuoteAsset(symbol string) string {
	if i := strings.Index(symbol, "/"); i >= 0 && i+1 < len(symbol) {
		return symbol[i+1:]
	}
	return ""
}

// IsStable reports whether the asset is treated as a 1 USD stablecoin.
func IsStable(asset string) bool {
	switch asset {
	case "BUSD", "USDT":
		return true
	}
	return false
}
