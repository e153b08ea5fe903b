package app

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	arbapp "arbsim/business/arbitrage/app"
	arbdomain "arbsim/business/arbitrage/domain"
	mdapp "arbsim/business/marketdata/app"
	pfapp "arbsim/business/portfolio/app"
	"arbsim/internal/apperror"
)

const scopeName = "arbsim/business/engine"

// Params configures the bot loops.
type Params struct {
	Symbols         []string
	Notional        decimal.Decimal
	MaxShown        int
	RefreshInterval time.Duration
	TickInterval    time.Duration
	MaxDailyTrades  int
	AttemptChance   float64
}

// Status is the bot status projection for the API and the UI.
type Status struct {
	IsRunning     bool          `json:"isRunning"`
	Opportunities int           `json:"opportunities"`
	DailyTrades   int           `json:"dailyTrades"`
	MarketSummary mdapp.Summary `json:"marketSummary"`
	Portfolio     pfapp.Status  `json:"portfolio"`
}

// Bot runs two independent loops: a market refresh loop that rebuilds the
// opportunity cache and a faster trading loop that occasionally takes the
// best cached opportunity. A slow market fetch never stalls the trading
// loop.
type Bot struct {
	params      Params
	market      *mdapp.Service
	scanner     *arbapp.Scanner
	simulator   *arbapp.Simulator
	ledger      *pfapp.Ledger
	broadcaster Broadcaster
	rng         *rand.Rand
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *botMetrics

	mu           sync.Mutex
	running      bool
	cancelMarket context.CancelFunc
	cancelTrade  context.CancelFunc
	wg           sync.WaitGroup

	oppMu         sync.RWMutex
	opportunities []arbdomain.Opportunity

	tradeMu     sync.Mutex
	dailyTrades int
	tradingDay  int
}

type botMetrics struct {
	scanCycles     metric.Int64Counter
	opportunities  metric.Int64Gauge
	tradesExecuted metric.Int64Counter
	portfolioValue metric.Float64Gauge
}

// NewBot wires the bot from its collaborators.
func NewBot(params Params, market *mdapp.Service, scanner *arbapp.Scanner, simulator *arbapp.Simulator, ledger *pfapp.Ledger, broadcaster Broadcaster, rng *rand.Rand, logger *slog.Logger) (*Bot, error) {
	b := &Bot{
		params:      params,
		market:      market,
		scanner:     scanner,
		simulator:   simulator,
		ledger:      ledger,
		broadcaster: broadcaster,
		rng:         rng,
		logger:      logger,
		tracer:      otel.Tracer(scopeName),
		tradingDay:  time.Now().Day(),
	}
	if err := b.initMetrics(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bot) initMetrics() error {
	meter := otel.Meter(scopeName)
	var err error

	b.metrics = &botMetrics{}

	b.metrics.scanCycles, err = meter.Int64Counter(
		"scan_cycles_total",
		metric.WithDescription("Completed opportunity scan cycles"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return err
	}

	b.metrics.opportunities, err = meter.Int64Gauge(
		"opportunities_cached",
		metric.WithDescription("Opportunities in the cache after the last scan"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return err
	}

	b.metrics.tradesExecuted, err = meter.Int64Counter(
		"trades_executed_total",
		metric.WithDescription("Simulated trades applied to the portfolio"),
		metric.WithUnit("{trade}"),
	)
	if err != nil {
		return err
	}

	b.metrics.portfolioValue, err = meter.Float64Gauge(
		"portfolio_value_usd",
		metric.WithDescription("Total portfolio value after the last trade"),
		metric.WithUnit("USD"),
	)
	return err
}

// Start launches both loops. Starting a running bot is an error.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return apperror.New(apperror.CodeBotAlreadyRunning)
	}

	marketCtx, cancelMarket := context.WithCancel(ctx)
	tradeCtx, cancelTrade := context.WithCancel(ctx)
	b.cancelMarket = cancelMarket
	b.cancelTrade = cancelTrade
	b.running = true

	b.refreshOpportunities(marketCtx)

	b.broadcaster.Broadcast(Event{
		Type:    EventBotStarted,
		Message: "Trading bot started",
		Data: map[string]any{
			"marketSummary": b.market.MarketSummary(),
			"portfolio":     b.ledger.Status(),
		},
	})

	b.wg.Add(2)
	go b.marketLoop(marketCtx)
	go b.tradingLoop(tradeCtx)

	b.logger.Info("bot started",
		"refresh_interval", b.params.RefreshInterval,
		"tick_interval", b.params.TickInterval)
	return nil
}

// Stop cancels both loops and waits for them. Stopping a stopped bot is a
// no-op.
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}
	b.cancelMarket()
	b.cancelTrade()
	b.wg.Wait()
	b.running = false

	b.broadcaster.Broadcast(Event{
		Type:    EventBotStopped,
		Message: "Trading bot stopped",
		Data:    map[string]any{"portfolio": b.ledger.Status()},
	})
	b.logger.Info("bot stopped")
}

// Running reports whether the loops are active.
func (b *Bot) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Reset reinitializes the portfolio and the daily trade counter.
func (b *Bot) Reset(balance decimal.Decimal) {
	b.ledger.Reset(balance)

	b.tradeMu.Lock()
	b.dailyTrades = 0
	b.tradeMu.Unlock()

	b.broadcaster.Broadcast(Event{
		Type:    EventReset,
		Message: "Portfolio reset to " + balance.StringFixed(2),
		Data:    map[string]any{"portfolio": b.ledger.Status()},
	})
}

// Status returns a combined bot and portfolio status.
func (b *Bot) Status() Status {
	b.tradeMu.Lock()
	daily := b.dailyTrades
	b.tradeMu.Unlock()

	return Status{
		IsRunning:     b.Running(),
		Opportunities: len(b.Opportunities()),
		DailyTrades:   daily,
		MarketSummary: b.market.MarketSummary(),
		Portfolio:     b.ledger.Status(),
	}
}

// Opportunities returns a copy of the cached opportunity list.
func (b *Bot) Opportunities() []arbdomain.Opportunity {
	b.oppMu.RLock()
	defer b.oppMu.RUnlock()
	out := make([]arbdomain.Opportunity, len(b.opportunities))
	copy(out, b.opportunities)
	return out
}

func (b *Bot) marketLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.params.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.refreshOpportunities(ctx)
			b.broadcaster.Broadcast(Event{
				Type: EventMarketUpdate,
				Data: map[string]any{
					"opportunities": b.Opportunities(),
					"marketSummary": b.market.MarketSummary(),
				},
			})
		}
	}
}

// refreshOpportunities scans every configured symbol and rebuilds the
// shared opportunity cache, best first.
func (b *Bot) refreshOpportunities(ctx context.Context) {
	ctx, span := b.tracer.Start(ctx, "engine.scan_cycle")
	defer span.End()

	var all []arbdomain.Opportunity
	for _, symbol := range b.params.Symbols {
		quotes := b.market.Quotes(ctx, symbol)
		opps, err := b.scanner.Scan(quotes, b.params.Notional)
		if err != nil {
			b.logger.Error("scan failed", "symbol", symbol, "error", err)
			continue
		}
		all = append(all, opps...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].EstimatedProfit.GreaterThan(all[j].EstimatedProfit)
	})
	if b.params.MaxShown > 0 && len(all) > b.params.MaxShown {
		all = all[:b.params.MaxShown]
	}

	b.oppMu.Lock()
	b.opportunities = all
	b.oppMu.Unlock()

	span.SetAttributes(attribute.Int("opportunities", len(all)))
	b.metrics.scanCycles.Add(ctx, 1)
	b.metrics.opportunities.Record(ctx, int64(len(all)))

	b.logger.Debug("opportunities refreshed", "count", len(all))
}

func (b *Bot) tradingLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.params.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.tradingTick(ctx)
		}
	}
}

func (b *Bot) tradingTick(ctx context.Context) {
	b.tradeMu.Lock()
	if day := time.Now().Day(); day != b.tradingDay {
		b.tradingDay = day
		b.dailyTrades = 0
	}
	capped := b.dailyTrades >= b.params.MaxDailyTrades
	b.tradeMu.Unlock()

	if capped {
		b.logger.Debug("daily trade cap reached", "cap", b.params.MaxDailyTrades)
		return
	}

	opps := b.Opportunities()
	if len(opps) == 0 || b.rng.Float64() >= b.params.AttemptChance {
		b.broadcaster.Broadcast(Event{
			Type: EventScan,
			Data: map[string]any{"opportunities": len(opps)},
		})
		return
	}

	best := opps[0]
	ctx, span := b.tracer.Start(ctx, "engine.evaluate_trade",
		trace.WithAttributes(attribute.String("pair", best.Symbol)))
	defer span.End()

	rec, executed, err := b.simulator.Evaluate(best, b.ledger.TotalValue())
	if err != nil {
		span.RecordError(err)
		b.logger.Error("trade evaluation failed", "error", err)
		return
	}
	if !executed {
		b.broadcaster.Broadcast(Event{
			Type: EventScan,
			Data: map[string]any{"opportunities": len(opps)},
		})
		return
	}

	snap := b.ledger.ApplyTrade(rec)

	b.metrics.tradesExecuted.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("success", rec.Success)))
	b.metrics.portfolioValue.Record(ctx, snap.TotalValue.InexactFloat64())

	b.tradeMu.Lock()
	b.dailyTrades++
	daily := b.dailyTrades
	b.tradeMu.Unlock()

	b.broadcaster.Broadcast(Event{
		Type: EventTradeExecuted,
		Data: map[string]any{
			"trade":       rec,
			"portfolio":   b.ledger.Status(),
			"dailyTrades": daily,
		},
	})
}
