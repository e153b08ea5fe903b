// Package ethereum provides a live gas cost estimate from a BSC/EVM node.
package ethereum

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	mddomain "arbsim/business/marketdata/domain"
	"arbsim/internal/apperror"
)

const meterName = "arbsim/business/arbitrage/ethereum"

// swapGasLimit approximates the gas used by a two-leg DEX swap.
const swapGasLimit = 150000

// GasOracle estimates the USD cost of an on-chain swap from the node's
// suggested gas price. Estimates are cached briefly; node errors fall back
// to the last known value.
type GasOracle struct {
	client  *ethclient.Client
	timeout time.Duration
	ttl     time.Duration
	logger  *slog.Logger
	metrics *oracleMetrics

	mu       sync.Mutex
	cached   decimal.Decimal
	cachedAt time.Time
}

type oracleMetrics struct {
	fetches    metric.Int64Counter
	fetchFails metric.Int64Counter
	cacheHits  metric.Int64Counter
	gasCostUSD metric.Float64Gauge
}

// Dial connects to the RPC endpoint and returns a gas oracle.
func Dial(ctx context.Context, rpcURL string, logger *slog.Logger) (*GasOracle, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeGasOracleError, "dial rpc")
	}

	o := &GasOracle{
		client:  client,
		timeout: 3 * time.Second,
		ttl:     12 * time.Second,
		logger:  logger,
	}
	if err := o.initMetrics(); err != nil {
		client.Close()
		return nil, err
	}
	return o, nil
}

func (o *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	o.metrics = &oracleMetrics{}

	o.metrics.fetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	o.metrics.fetchFails, err = meter.Int64Counter(
		"gas_price_fetch_errors_total",
		metric.WithDescription("Gas price fetches the node failed to answer"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	o.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas estimates served from the cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	o.metrics.gasCostUSD, err = meter.Float64Gauge(
		"gas_cost_usd",
		metric.WithDescription("Current swap gas cost estimate in USD"),
		metric.WithUnit("USD"),
	)
	return err
}

// GasUSD returns the current swap cost estimate in USD. ok is false when
// the node has never answered.
func (o *GasOracle) GasUSD() (decimal.Decimal, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	if !o.cached.IsZero() && time.Since(o.cachedAt) < o.ttl {
		o.metrics.cacheHits.Add(ctx, 1)
		return o.cached, true
	}

	o.metrics.fetches.Add(ctx, 1)
	gasPrice, err := o.client.SuggestGasPrice(ctx)
	if err != nil {
		o.metrics.fetchFails.Add(ctx, 1)
		o.logger.Warn("gas price fetch failed", "error", err)
		if !o.cached.IsZero() {
			return o.cached, true
		}
		return decimal.Zero, false
	}

	o.cached = weiToUSD(gasPrice, swapGasLimit, mddomain.ReferencePrice("BNB"))
	o.cachedAt = time.Now()
	o.metrics.gasCostUSD.Record(ctx, o.cached.InexactFloat64())
	return o.cached, true
}

// Close releases the RPC connection.
func (o *GasOracle) Close() {
	o.client.Close()
}

func weiToUSD(gasPriceWei *big.Int, gasLimit uint64, nativeUSD decimal.Decimal) decimal.Decimal {
	totalWei := new(big.Int).Mul(gasPriceWei, new(big.Int).SetUint64(gasLimit))
	wei := decimal.NewFromBigInt(totalWei, 0)
	native := wei.Div(decimal.New(1, 18))
	return native.Mul(nativeUSD)
}
