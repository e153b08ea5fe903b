package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource identifies where a spot price came from.
type PriceSource string

const (
	// SourceCoinGecko marks prices fetched from the CoinGecko API.
	SourceCoinGecko PriceSource = "coingecko"

	// SourceSynthetic marks prices produced by the fallback generator.
	SourceSynthetic PriceSource = "synthetic"
)

// SpotPrice is a USD reference price for one asset.
type SpotPrice struct {
	Asset     string
	PriceUSD  decimal.Decimal
	Change24h decimal.Decimal
	Source    PriceSource
	FetchedAt time.Time
}

// referenceUSD are the baseline USD prices used when no live data is
// available and for valuing held positions.
var referenceUSD = map[string]decimal.Decimal{
	"BNB":  decimal.NewFromInt(280),
	"CAKE": decimal.RequireFromString("2.1"),
	"BTCB": decimal.NewFromInt(43000),
	"BUSD": decimal.NewFromInt(1),
	"USDT": decimal.NewFromInt(1),
}

// ReferencePrice returns the baseline USD price for an asset. Unknown
// assets are valued at zero.
func ReferencePrice(asset string) decimal.Decimal {
	if p, ok := referenceUSD[asset]; ok {
		return p
	}
	return decimal.Zero
}

// ReferenceAssets lists the assets with a baseline price, in stable order.
func ReferenceAssets() []string {
	return []string{"BNB", "CAKE", "BTCB", "BUSD", "USDT"}
}
