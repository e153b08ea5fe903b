package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"arbsim/business/marketdata/domain"
)

// Summary is a compact view of the market data layer for status endpoints.
type Summary struct {
	Status       string    `json:"status"`
	DataSource   string    `json:"dataSource"`
	TokenCount   int       `json:"tokenCount"`
	AvgChange24h string    `json:"avgChange24h"`
	LastUpdate   time.Time `json:"lastUpdate"`
}

// Service serves spot prices and per-venue quotes. Live prices are cached
// and every failure falls back to the synthetic generator, so callers never
// see an error from this layer.
type Service struct {
	fetcher   SpotFetcher
	generator QuoteGenerator
	exchanges []string
	cacheTTL  time.Duration
	logger    *slog.Logger

	mu         sync.Mutex
	cache      map[string]domain.SpotPrice
	cachedAt   time.Time
	lastUpdate time.Time
	live       bool
}

// NewService creates a market data service. fetcher may be nil to run
// fully synthetic.
func NewService(fetcher SpotFetcher, generator QuoteGenerator, exchanges []string, cacheTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		fetcher:   fetcher,
		generator: generator,
		exchanges: exchanges,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// SpotPrices returns USD reference prices for all known assets, cached for
// the configured TTL. Fetch failures degrade to synthetic prices.
func (s *Service) SpotPrices(ctx context.Context) map[string]domain.SpotPrice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spotPricesLocked(ctx)
}

func (s *Service) spotPricesLocked(ctx context.Context) map[string]domain.SpotPrice {
	if s.cache != nil && time.Since(s.cachedAt) < s.cacheTTL {
		return s.cache
	}

	if s.fetcher != nil {
		prices, err := s.fetcher.SpotPrices(ctx)
		if err == nil {
			s.store(prices, true)
			return s.cache
		}
		s.logger.Warn("live price fetch failed, using synthetic prices", "error", err)
	}

	s.store(s.generator.SpotPrices(), false)
	return s.cache
}

func (s *Service) store(prices map[string]domain.SpotPrice, live bool) {
	s.cache = prices
	s.cachedAt = time.Now()
	s.lastUpdate = s.cachedAt
	s.live = live
}

// Quotes returns one quote per configured exchange for the symbol. The
// symbol's price is the base asset's USD spot converted into the quote
// asset.
func (s *Service) Quotes(ctx context.Context, symbol string) []domain.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	prices := s.spotPricesLocked(ctx)

	base := s.assetPrice(prices, domain.BaseAsset(symbol))
	quote := s.assetPrice(prices, domain.QuoteAsset(symbol))
	if !quote.IsPositive() {
		quote = decimal.NewFromInt(1)
	}

	return s.generator.Quotes(s.exchanges, symbol, base.Div(quote))
}

func (s *Service) assetPrice(prices map[string]domain.SpotPrice, asset string) decimal.Decimal {
	if p, ok := prices[asset]; ok && p.PriceUSD.IsPositive() {
		return p.PriceUSD
	}
	return domain.ReferencePrice(asset)
}

// LastUpdate returns when prices were last refreshed from any source.
func (s *Service) LastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdate
}

// MarketSummary reports the state of the market data layer.
func (s *Service) MarketSummary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache == nil {
		return Summary{Status: "Loading", DataSource: "Initializing"}
	}

	source := "Synthetic Simulation"
	status := "Simulated Data"
	if s.live {
		source = "CoinGecko Live"
		status = "Live Data"
	}

	sum := decimal.Zero
	for _, p := range s.cache {
		sum = sum.Add(p.Change24h)
	}
	avg := decimal.Zero
	if len(s.cache) > 0 {
		avg = sum.Div(decimal.NewFromInt(int64(len(s.cache))))
	}

	return Summary{
		Status:       status,
		DataSource:   source,
		TokenCount:   len(s.cache),
		AvgChange24h: avg.StringFixed(2) + "%",
		LastUpdate:   s.lastUpdate,
	}
}
