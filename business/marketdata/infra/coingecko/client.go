// Package coingecko fetches live USD spot prices from the CoinGecko API.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"arbsim/business/marketdata/domain"
	"arbsim/internal/apperror"
	"arbsim/internal/ratelimit"
)

const meterName = "arbsim/business/marketdata/coingecko"

// coinIDs maps our asset symbols to CoinGecko coin ids.
var coinIDs = map[string]string{
	"BNB":  "binancecoin",
	"CAKE": "pancakeswap-token",
	"BTCB": "bitcoin",
	"BUSD": "binance-usd",
	"USDT": "tether",
}

// Client calls the CoinGecko /simple/price endpoint with a circuit breaker
// and a client-side rate limit.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[map[string]domain.SpotPrice]
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	metrics *clientMetrics
}

type clientMetrics struct {
	fetches     metric.Int64Counter
	fetchErrors metric.Int64Counter
	rateLimited metric.Int64Counter
}

// NewClient creates a CoinGecko client.
func NewClient(baseURL string, timeout time.Duration, requestsPerMin int, logger *slog.Logger) (*Client, error) {
	settings := gobreaker.Settings{
		Name:    "coingecko",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[map[string]domain.SpotPrice](settings),
		limiter: ratelimit.New(requestsPerMin),
		logger:  logger,
	}
	if err := c.initMetrics(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.fetches, err = meter.Int64Counter(
		"coingecko_fetches_total",
		metric.WithDescription("Total price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	c.metrics.fetchErrors, err = meter.Int64Counter(
		"coingecko_fetch_errors_total",
		metric.WithDescription("Price fetches that returned an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	c.metrics.rateLimited, err = meter.Int64Counter(
		"coingecko_rate_limited_total",
		metric.WithDescription("Fetches rejected by the client-side rate limit"),
		metric.WithUnit("{rejection}"),
	)
	return err
}

// SpotPrices fetches USD prices with 24h change for all known assets.
func (c *Client) SpotPrices(ctx context.Context) (map[string]domain.SpotPrice, error) {
	if !c.limiter.Allow() {
		c.metrics.rateLimited.Add(ctx, 1)
		return nil, apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithContext("coingecko client-side limit"))
	}

	c.metrics.fetches.Add(ctx, 1)
	prices, err := c.breaker.Execute(func() (map[string]domain.SpotPrice, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		c.metrics.fetchErrors.Add(ctx, 1)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperror.New(apperror.CodeCircuitOpen,
				apperror.WithContext("coingecko"), apperror.WithCause(err))
		}
		return nil, err
	}
	return prices, nil
}

func (c *Client) fetch(ctx context.Context) (map[string]domain.SpotPrice, error) {
	ids := make([]string, 0, len(coinIDs))
	for _, id := range coinIDs {
		ids = append(ids, id)
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")

	endpoint := fmt.Sprintf("%s/simple/price?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeFetchFailure, "build coingecko request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, apperror.Wrap(err, apperror.CodeFetchTimeout, "coingecko request")
		}
		return nil, apperror.Wrap(err, apperror.CodeFetchFailure, "coingecko request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperror.New(apperror.CodeCoinGeckoAPIError,
			apperror.WithContext(fmt.Sprintf("status %d: %s", resp.StatusCode, string(body))))
	}

	var payload map[string]struct {
		USD       float64 `json:"usd"`
		Change24h float64 `json:"usd_24h_change"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeCoinGeckoAPIError, "decode coingecko response")
	}

	now := time.Now()
	prices := make(map[string]domain.SpotPrice, len(coinIDs))
	for asset, id := range coinIDs {
		entry, ok := payload[id]
		if !ok || entry.USD <= 0 {
			continue
		}
		prices[asset] = domain.SpotPrice{
			Asset:     asset,
			PriceUSD:  decimal.NewFromFloat(entry.USD),
			Change24h: decimal.NewFromFloat(entry.Change24h),
			Source:    domain.SourceCoinGecko,
			FetchedAt: now,
		}
	}

	if len(prices) == 0 {
		return nil, apperror.New(apperror.CodeInsufficientData,
			apperror.WithContext("coingecko returned no usable prices"))
	}
	return prices, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
