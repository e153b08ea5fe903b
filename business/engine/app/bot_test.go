package app

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	arbapp "arbsim/business/arbitrage/app"
	arbdomain "arbsim/business/arbitrage/domain"
	mdapp "arbsim/business/marketdata/app"
	"arbsim/business/marketdata/infra/synthetic"
	pfapp "arbsim/business/portfolio/app"
	"arbsim/internal/apperror"
)

type captureBroadcaster struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureBroadcaster) Broadcast(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureBroadcaster) types() []EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]EventType, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func (c *captureBroadcaster) count(t EventType) int {
	n := 0
	for _, typ := range c.types() {
		if typ == t {
			n++
		}
	}
	return n
}

func newTestBot(t *testing.T, params Params, broadcaster Broadcaster) *Bot {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	exchanges := []string{"PancakeSwap", "Biswap", "ApeSwap", "BabySwap"}
	generator := synthetic.NewGenerator(rand.New(rand.NewPCG(1, 0)))
	market := mdapp.NewService(nil, generator, exchanges, 30*time.Second, logger)

	costs := arbdomain.NewCostModel(arbdomain.CostModelParams{
		TradingFeeBps:  decimal.NewFromInt(10),
		SlippageMinBps: decimal.NewFromInt(5),
		SlippageMaxBps: decimal.NewFromInt(20),
		GasMinUSD:      decimal.NewFromInt(2),
		GasMaxUSD:      decimal.NewFromInt(6),
	}, rand.New(rand.NewPCG(1, 1)), nil)

	scanner := arbapp.NewScanner(logger)
	simulator := arbapp.NewSimulator(costs, rand.New(rand.NewPCG(1, 2)), logger)
	ledger := pfapp.NewLedger(decimal.NewFromInt(10000), 5*time.Minute,
		decimal.NewFromInt(50), 0.1, logger)

	b, err := NewBot(params, market, scanner, simulator, ledger,
		broadcaster, rand.New(rand.NewPCG(1, 3)), logger)
	require.NoError(t, err)
	return b
}

// Long intervals keep the loop tickers quiet so tests drive the bot
// through refreshOpportunities and tradingTick directly.
func quietParams() Params {
	return Params{
		Symbols:         []string{"BNB/BUSD", "CAKE/BUSD", "BUSD/USDT", "BTCB/BUSD"},
		Notional:        decimal.NewFromInt(1000),
		MaxShown:        10,
		RefreshInterval: time.Hour,
		TickInterval:    time.Hour,
		MaxDailyTrades:  30,
		AttemptChance:   0.2,
	}
}

func seedOpportunities(b *Bot, opps ...arbdomain.Opportunity) {
	b.oppMu.Lock()
	b.opportunities = opps
	b.oppMu.Unlock()
}

// fatOpportunity clears every profitability gate regardless of the
// random draws: at a 5% spread even the minimum trade size nets a profit.
func fatOpportunity() arbdomain.Opportunity {
	return arbdomain.Opportunity{
		Symbol:          "BNB/BUSD",
		BuyExchange:     "PancakeSwap",
		SellExchange:    "Biswap",
		BuyPrice:        decimal.NewFromInt(280),
		SellPrice:       decimal.NewFromInt(294),
		SpreadAbs:       decimal.NewFromInt(14),
		SpreadPct:       decimal.RequireFromString("0.05"),
		Notional:        decimal.NewFromInt(1000),
		EstimatedProfit: decimal.NewFromInt(50),
		Timestamp:       time.Now(),
	}
}

func TestStartTwiceReturnsAlreadyRunning(t *testing.T) {
	b := newTestBot(t, quietParams(), &captureBroadcaster{})

	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	err := b.Start(context.Background())
	require.True(t, apperror.HasCode(err, apperror.CodeBotAlreadyRunning),
		"second start: got %v", err)
	require.True(t, b.Running())
}

func TestStopIsIdempotent(t *testing.T) {
	b := newTestBot(t, quietParams(), &captureBroadcaster{})

	b.Stop() // never started

	require.NoError(t, b.Start(context.Background()))
	b.Stop()
	b.Stop()
	require.False(t, b.Running())
}

func TestStartStopBroadcasts(t *testing.T) {
	cast := &captureBroadcaster{}
	b := newTestBot(t, quietParams(), cast)

	require.NoError(t, b.Start(context.Background()))
	b.Stop()

	require.Equal(t, 1, cast.count(EventBotStarted))
	require.Equal(t, 1, cast.count(EventBotStopped))

	types := cast.types()
	require.Equal(t, EventBotStarted, types[0])
	require.Equal(t, EventBotStopped, types[len(types)-1])
}

func TestResetClearsDailyCountAndBroadcasts(t *testing.T) {
	cast := &captureBroadcaster{}
	b := newTestBot(t, quietParams(), cast)
	b.dailyTrades = 7

	b.Reset(decimal.NewFromInt(25000))

	require.Equal(t, 1, cast.count(EventReset))
	status := b.Status()
	require.Zero(t, status.DailyTrades)
	require.True(t, status.Portfolio.TotalValue.Equal(decimal.NewFromInt(25000)))
}

func TestRefreshOpportunitiesCache(t *testing.T) {
	b := newTestBot(t, quietParams(), &captureBroadcaster{})

	b.refreshOpportunities(context.Background())

	opps := b.Opportunities()
	require.LessOrEqual(t, len(opps), quietParams().MaxShown)
	for i := 1; i < len(opps); i++ {
		require.False(t, opps[i].EstimatedProfit.GreaterThan(opps[i-1].EstimatedProfit),
			"cache not sorted best first at index %d", i)
	}
}

func TestTradingTickEmitsScanWhenNotAttempting(t *testing.T) {
	params := quietParams()
	params.AttemptChance = 0
	cast := &captureBroadcaster{}
	b := newTestBot(t, params, cast)
	seedOpportunities(b, fatOpportunity())

	b.tradingTick(context.Background())

	require.Equal(t, 1, cast.count(EventScan))
	require.Zero(t, cast.count(EventTradeExecuted))
	require.Zero(t, b.Status().DailyTrades)
}

func TestTradingTickRespectsDailyCap(t *testing.T) {
	params := quietParams()
	params.AttemptChance = 1
	params.MaxDailyTrades = 0
	cast := &captureBroadcaster{}
	b := newTestBot(t, params, cast)
	seedOpportunities(b, fatOpportunity())

	b.tradingTick(context.Background())

	require.Empty(t, cast.types(), "capped tick must stay silent")
}

func TestTradingTickExecutesBestOpportunity(t *testing.T) {
	params := quietParams()
	params.AttemptChance = 1
	cast := &captureBroadcaster{}
	b := newTestBot(t, params, cast)
	seedOpportunities(b, fatOpportunity())

	b.tradingTick(context.Background())

	require.Equal(t, 1, cast.count(EventTradeExecuted))
	status := b.Status()
	require.Equal(t, 1, status.DailyTrades)
	require.Equal(t, 1, status.Portfolio.Metrics.TotalTrades)
	require.Len(t, status.Portfolio.RecentTrades, 1)

	rec := status.Portfolio.RecentTrades[0]
	require.Equal(t, "BNB/BUSD", rec.Pair)
	require.True(t, rec.PortfolioValueBefore.Equal(decimal.NewFromInt(10000)))
}

func TestTradeAndScanMetricsRecorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	params := quietParams()
	params.AttemptChance = 1
	b := newTestBot(t, params, &captureBroadcaster{})

	b.refreshOpportunities(context.Background())
	seedOpportunities(b, fatOpportunity())
	b.tradingTick(context.Background())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				sums[m.Name] += dp.Value
			}
		}
	}
	require.Equal(t, int64(1), sums["scan_cycles_total"])
	require.Equal(t, int64(1), sums["trades_executed_total"])
}

func TestStartRunsInitialScan(t *testing.T) {
	cast := &captureBroadcaster{}
	b := newTestBot(t, quietParams(), cast)

	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	// The bot_started event already carries market and portfolio data
	// from the initial refresh.
	require.Equal(t, 1, cast.count(EventBotStarted))
	require.NotEqual(t, "Initializing", b.Status().MarketSummary.DataSource)
}

func TestStopWaitsForLoops(t *testing.T) {
	params := quietParams()
	params.RefreshInterval = 5 * time.Millisecond
	params.TickInterval = 5 * time.Millisecond
	params.AttemptChance = 0
	cast := &captureBroadcaster{}
	b := newTestBot(t, params, cast)

	require.NoError(t, b.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	b.Stop()

	// After Stop returns the loops are gone; no further events arrive.
	n := len(cast.types())
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, n, len(cast.types()))
	require.Equal(t, EventBotStopped, cast.types()[n-1])
}
