// Package synthetic generates simulated market data when no live feed is
// available.
package synthetic

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"arbsim/business/marketdata/domain"
)

// exchangeVariance is the average price offset of each venue relative to
// PancakeSwap, the reference exchange.
var exchangeVariance = map[string]float64{
	"PancakeSwap": 0,
	"Biswap":      0.001,
	"ApeSwap":     -0.0005,
	"BabySwap":    0.0015,
}

// venueSpread is the typical quoted bid/ask spread per venue. Less liquid
// venues quote wider.
var venueSpread = map[string]float64{
	"PancakeSwap": 0.0008,
	"Biswap":      0.0012,
	"ApeSwap":     0.0015,
	"BabySwap":    0.0020,
}

// liquidityFactor widens spreads for thinner tokens.
var liquidityFactor = map[string]float64{
	"BNB":  1.0,
	"CAKE": 1.2,
	"BTCB": 0.8,
}

// jitter is the per-asset fallback price band: baseline ± halfRange plus a
// slow sine drift.
type jitter struct {
	halfRange  float64
	driftScale float64
	changeBand float64
}

var fallbackJitter = map[string]jitter{
	"BNB":  {halfRange: 10, driftScale: 10, changeBand: 10},
	"CAKE": {halfRange: 0.2, driftScale: 0.2, changeBand: 15},
	"BTCB": {halfRange: 1000, driftScale: 1000, changeBand: 5},
	"BUSD": {halfRange: 0.005, changeBand: 0.5},
	"USDT": {halfRange: 0.005, changeBand: 0.5},
}

// Generator produces synthetic spot prices and per-venue quotes. Not safe
// for concurrent use; callers serialize access.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a generator backed by the given random source.
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng, now: time.Now}
}

// SpotPrices returns synthetic USD reference prices for all known assets.
func (g *Generator) SpotPrices() map[string]domain.SpotPrice {
	now := g.now()
	// Slow market-wide drift on a ten minute cycle.
	drift := math.Sin(float64(now.UnixMilli())/600000) * 0.1

	prices := make(map[string]domain.SpotPrice, len(fallbackJitter))
	for _, asset := range domain.ReferenceAssets() {
		j := fallbackJitter[asset]
		base := domain.ReferencePrice(asset).InexactFloat64()
		price := base + (g.rng.Float64()-0.5)*2*j.halfRange + drift*j.driftScale
		change := (g.rng.Float64() - 0.5) * j.changeBand

		prices[asset] = domain.SpotPrice{
			Asset:     asset,
			PriceUSD:  decimal.NewFromFloat(price),
			Change24h: decimal.NewFromFloat(change),
			Source:    domain.SourceSynthetic,
			FetchedAt: now,
		}
	}
	return prices
}

// Quote produces a bid/ask quote for one symbol on one venue, derived from
// the symbol's USD spot price.
func (g *Generator) Quote(exchange, symbol string, spot decimal.Decimal) domain.Quote {
	mid := spot.InexactFloat64()
	mid *= 1 + exchangeVariance[exchange] +
		(g.rng.Float64()-0.5)*0.003 + // time variance
		(g.rng.Float64()-0.5)*0.002 // liquidity impact

	liq, ok := liquidityFactor[domain.BaseAsset(symbol)]
	if !ok {
		liq = 1.5
	}
	spread, ok := venueSpread[exchange]
	if !ok {
		spread = 0.0015
	}
	half := spread * liq / 2

	return domain.Quote{
		Exchange:  exchange,
		Symbol:    symbol,
		Bid:       decimal.NewFromFloat(mid * (1 - half)),
		Ask:       decimal.NewFromFloat(mid * (1 + half)),
		Timestamp: g.now(),
	}
}

// Quotes produces quotes for a symbol across all requested venues.
func (g *Generator) Quotes(exchanges []string, symbol string, spot decimal.Decimal) []domain.Quote {
	quotes := make([]domain.Quote, 0, len(exchanges))
	for _, ex := range exchanges {
		quotes = append(quotes, g.Quote(ex, symbol, spot))
	}
	return quotes
}
