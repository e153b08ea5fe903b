// Package main is the entry point for the arbitrage simulator.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	arbapp "arbsim/business/arbitrage/app"
	arbdomain "arbsim/business/arbitrage/domain"
	"arbsim/business/arbitrage/infra/ethereum"
	engineapp "arbsim/business/engine/app"
	engineinfra "arbsim/business/engine/infra"
	mdapp "arbsim/business/marketdata/app"
	"arbsim/business/marketdata/infra/coingecko"
	"arbsim/business/marketdata/infra/synthetic"
	pfapp "arbsim/business/portfolio/app"
	"arbsim/internal/config"
	"arbsim/internal/health"
	"arbsim/internal/server"
	"arbsim/internal/telemetry"
	"arbsim/pkg/ui"

	"github.com/shopspring/decimal"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	tuiFlag := flag.Bool("tui", false, "Run with the terminal dashboard")
	autostart := flag.Bool("autostart", false, "Start the trading loops immediately")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("arbsim %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !*tuiFlag {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, *configPath, *tuiFlag, *autostart); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode, autostart bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.App.TUIMode = tuiMode

	logger := newLogger(cfg, tuiMode)
	if !tuiMode {
		logger.Info("starting arbitrage simulator",
			"version", version, "environment", cfg.App.Environment)
	}

	if cfg.Telemetry.Enabled {
		meterProvider, err := telemetry.NewMeterProvider(cfg.Telemetry.ServiceName)
		if err != nil {
			return fmt.Errorf("failed to init metrics: %w", err)
		}
		meterProvider.ServeMetrics(cfg.Telemetry.PrometheusPort)
		defer meterProvider.Shutdown(context.Background())

		tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry.ServiceName,
			telemetry.TracerExporter(cfg.Telemetry.TraceExporter), cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
		defer tracerProvider.Shutdown(context.Background())

		logger.Info("telemetry initialized",
			"prometheus_port", cfg.Telemetry.PrometheusPort,
			"trace_exporter", cfg.Telemetry.TraceExporter)
	}

	// Independent random streams per component, one configured seed.
	seed := cfg.Trading.Seed
	if cfg.Trading.SeedFromClock {
		seed = uint64(time.Now().UnixNano())
	}
	newRand := func(stream uint64) *rand.Rand {
		return rand.New(rand.NewPCG(seed, stream))
	}

	// Market data
	var fetcher mdapp.SpotFetcher
	if cfg.Market.CoinGeckoURL != "" {
		client, err := coingecko.NewClient(cfg.Market.CoinGeckoURL, cfg.Market.FetchTimeout,
			cfg.Market.RequestsPerMin, logger)
		if err != nil {
			return fmt.Errorf("failed to init coingecko client: %w", err)
		}
		fetcher = client
	}
	generator := synthetic.NewGenerator(newRand(0))
	market := mdapp.NewService(fetcher, generator, cfg.Market.Exchanges, cfg.Market.CacheTTL, logger)

	// Costs, optionally fed by a live gas oracle
	var gasQuoter arbdomain.GasQuoter
	if cfg.Market.GasOracleEnabled {
		oracle, err := ethereum.Dial(ctx, cfg.Market.EthereumRPC, logger)
		if err != nil {
			logger.Warn("gas oracle unavailable, using synthetic gas", "error", err)
		} else {
			defer oracle.Close()
			gasQuoter = oracle
		}
	}
	costModel := arbdomain.NewCostModel(arbdomain.CostModelParams{
		TradingFeeBps:  decimal.NewFromFloat(cfg.Costs.TradingFeeBps),
		SlippageMinBps: decimal.NewFromFloat(cfg.Costs.SlippageMinBps),
		SlippageMaxBps: decimal.NewFromFloat(cfg.Costs.SlippageMaxBps),
		GasMinUSD:      decimal.NewFromFloat(cfg.Costs.GasMinUSD),
		GasMaxUSD:      decimal.NewFromFloat(cfg.Costs.GasMaxUSD),
	}, newRand(1), gasQuoter)

	// Trading
	scanner := arbapp.NewScanner(logger)
	simulator := arbapp.NewSimulator(costModel, newRand(2), logger)
	ledger := pfapp.NewLedger(cfg.Portfolio.StartingBalanceDecimal(),
		cfg.Portfolio.SnapshotInterval, cfg.Portfolio.SnapshotThresholdDecimal(),
		cfg.Portfolio.RiskFreeRate, logger)

	// Engine, with the broadcaster assembled below
	var bot *engineapp.Bot

	hub := server.NewHub(func() any {
		if bot == nil {
			return nil
		}
		return map[string]any{
			"isRunning":     bot.Running(),
			"opportunities": bot.Opportunities(),
			"marketSummary": market.MarketSummary(),
			"portfolio":     ledger.Status(),
		}
	}, logger)

	broadcasters := []engineapp.Broadcaster{hub}

	var program *tea.Program
	if tuiMode {
		program = tea.NewProgram(ui.New(), tea.WithAltScreen())
		broadcasters = append(broadcasters, ui.NewReporter(program))
	} else {
		broadcasters = append(broadcasters, engineinfra.NewConsoleReporter())
	}

	bot, err = engineapp.NewBot(engineapp.Params{
		Symbols:         cfg.Market.Symbols,
		Notional:        cfg.Arbitrage.NotionalDecimal(),
		MaxShown:        cfg.Arbitrage.MaxShown,
		RefreshInterval: cfg.Market.RefreshInterval,
		TickInterval:    cfg.Trading.TickInterval,
		MaxDailyTrades:  cfg.Trading.MaxDailyTrades,
		AttemptChance:   cfg.Trading.AttemptChance,
	}, market, scanner, simulator, ledger,
		engineinfra.NewMultiBroadcaster(broadcasters...), newRand(3), logger)
	if err != nil {
		return fmt.Errorf("failed to init bot: %w", err)
	}

	// Health endpoints
	healthServer := health.NewServer(cfg.Server.HealthPort, version)
	healthServer.RegisterCheck("engine", func(context.Context) (bool, string) {
		if bot.Running() {
			return true, "running"
		}
		return true, "stopped"
	})
	healthServer.RegisterCheck("market_data", func(context.Context) (bool, string) {
		last := market.LastUpdate()
		if last.IsZero() {
			return true, "no data yet"
		}
		if time.Since(last) > 3*cfg.Market.RefreshInterval {
			return false, "stale market data"
		}
		return true, "fresh"
	})
	if err := healthServer.Start(); err != nil {
		logger.Warn("failed to start health server", "error", err)
	}
	defer healthServer.Stop(context.Background())

	// Control surface
	apiServer := server.NewServer(ctx, cfg.Server.Port, bot, ledger, hub, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("http server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		apiServer.Stop(shutdownCtx)
	}()

	if autostart || tuiMode {
		if err := bot.Start(ctx); err != nil {
			return fmt.Errorf("failed to start bot: %w", err)
		}
	}
	defer bot.Stop()

	if tuiMode {
		go func() {
			<-ctx.Done()
			program.Quit()
		}()
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// newLogger builds the JSON logger; the TUI owns the terminal so logs are
// discarded in that mode.
func newLogger(cfg *config.Config, tuiMode bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := io.Writer(os.Stderr)
	if tuiMode {
		out = io.Discard
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})).
		With("service", cfg.App.Name)
}
