package app

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"arbsim/business/marketdata/domain"
	"arbsim/business/marketdata/infra/synthetic"
	"arbsim/internal/apperror"
)

var testExchanges = []string{"PancakeSwap", "Biswap", "ApeSwap", "BabySwap"}

type stubFetcher struct {
	prices map[string]domain.SpotPrice
	err    error
	calls  int
}

func (s *stubFetcher) SpotPrices(ctx context.Context) (map[string]domain.SpotPrice, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.prices, nil
}

func newTestService(fetcher SpotFetcher, ttl time.Duration) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen := synthetic.NewGenerator(rand.New(rand.NewPCG(1, 0)))
	return NewService(fetcher, gen, testExchanges, ttl, logger)
}

func livePrices() map[string]domain.SpotPrice {
	return map[string]domain.SpotPrice{
		"BNB": {
			Asset:     "BNB",
			PriceUSD:  decimal.NewFromInt(300),
			Change24h: decimal.RequireFromString("1.5"),
			Source:    domain.SourceCoinGecko,
			FetchedAt: time.Now(),
		},
		"BUSD": {
			Asset:    "BUSD",
			PriceUSD: decimal.NewFromInt(1),
			Source:   domain.SourceCoinGecko,
		},
	}
}

func TestSpotPricesUsesLiveFetcher(t *testing.T) {
	fetcher := &stubFetcher{prices: livePrices()}
	svc := newTestService(fetcher, 30*time.Second)

	prices := svc.SpotPrices(context.Background())
	require.Equal(t, 1, fetcher.calls)
	require.True(t, prices["BNB"].PriceUSD.Equal(decimal.NewFromInt(300)))

	summary := svc.MarketSummary()
	require.Equal(t, "CoinGecko Live", summary.DataSource)
}

func TestSpotPricesFallsBackOnFetchFailure(t *testing.T) {
	fetcher := &stubFetcher{err: apperror.New(apperror.CodeFetchTimeout)}
	svc := newTestService(fetcher, 30*time.Second)

	prices := svc.SpotPrices(context.Background())
	require.NotEmpty(t, prices)
	for _, p := range prices {
		require.Equal(t, domain.SourceSynthetic, p.Source)
		require.True(t, p.PriceUSD.IsPositive())
	}

	summary := svc.MarketSummary()
	require.Equal(t, "Synthetic Simulation", summary.DataSource)
}

func TestSpotPricesCachesWithinTTL(t *testing.T) {
	fetcher := &stubFetcher{prices: livePrices()}
	svc := newTestService(fetcher, time.Hour)

	svc.SpotPrices(context.Background())
	svc.SpotPrices(context.Background())
	svc.SpotPrices(context.Background())

	require.Equal(t, 1, fetcher.calls)
}

func TestQuotesNeverEmptyEvenWhenFetcherFails(t *testing.T) {
	fetcher := &stubFetcher{err: apperror.New(apperror.CodeFetchFailure)}
	svc := newTestService(fetcher, 30*time.Second)

	quotes := svc.Quotes(context.Background(), "BNB/BUSD")
	require.Len(t, quotes, len(testExchanges))
	for _, q := range quotes {
		require.NoError(t, q.Validate())
	}
}

func TestQuotesConvertIntoQuoteAsset(t *testing.T) {
	fetcher := &stubFetcher{prices: livePrices()}
	svc := newTestService(fetcher, 30*time.Second)

	quotes := svc.Quotes(context.Background(), "BNB/BUSD")
	require.NotEmpty(t, quotes)
	for _, q := range quotes {
		// Live BNB is $300; venue mids stay within a few percent of it.
		mid := q.Mid().InexactFloat64()
		require.InDelta(t, 300, mid, 15)
	}
}

func TestQuotesNilFetcherRunsSynthetic(t *testing.T) {
	svc := newTestService(nil, 30*time.Second)

	quotes := svc.Quotes(context.Background(), "CAKE/BUSD")
	require.Len(t, quotes, len(testExchanges))
	for _, q := range quotes {
		require.NoError(t, q.Validate())
	}
}
