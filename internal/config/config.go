// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Market    MarketConfig    `mapstructure:"market"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Costs     CostsConfig     `mapstructure:"costs"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// ServerConfig holds the HTTP control surface settings.
type ServerConfig struct {
	Port       int `mapstructure:"port"`
	HealthPort int `mapstructure:"health_port"`
}

// MarketConfig holds market data source configuration.
type MarketConfig struct {
	Exchanges        []string      `mapstructure:"exchanges"`
	Symbols          []string      `mapstructure:"symbols"`
	CoinGeckoURL     string        `mapstructure:"coingecko_url"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	RequestsPerMin   int           `mapstructure:"requests_per_min"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	EthereumRPC      string        `mapstructure:"ethereum_rpc"`
	GasOracleEnabled bool          `mapstructure:"gas_oracle_enabled"`
}

// ArbitrageConfig holds opportunity scanning configuration.
type ArbitrageConfig struct {
	Notional float64 `mapstructure:"notional"`
	MaxShown int     `mapstructure:"max_shown"`
}

// NotionalDecimal returns the scan notional as decimal.Decimal.
func (c *ArbitrageConfig) NotionalDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.Notional)
}

// TradingConfig holds simulated trading loop configuration.
type TradingConfig struct {
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	MaxDailyTrades int           `mapstructure:"max_daily_trades"`
	AttemptChance  float64       `mapstructure:"attempt_chance"`
	Seed           uint64        `mapstructure:"seed"`
	SeedFromClock  bool          `mapstructure:"seed_from_clock"`
}

// PortfolioConfig holds ledger configuration.
type PortfolioConfig struct {
	StartingBalance   float64       `mapstructure:"starting_balance"`
	SnapshotInterval  time.Duration `mapstructure:"snapshot_interval"`
	SnapshotThreshold float64       `mapstructure:"snapshot_threshold"`
	RiskFreeRate      float64       `mapstructure:"risk_free_rate"`
}

// StartingBalanceDecimal returns the starting balance as decimal.Decimal.
func (c *PortfolioConfig) StartingBalanceDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.StartingBalance)
}

// SnapshotThresholdDecimal returns the snapshot value threshold as decimal.Decimal.
func (c *PortfolioConfig) SnapshotThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SnapshotThreshold)
}

// CostsConfig holds execution cost model configuration.
type CostsConfig struct {
	TradingFeeBps  float64 `mapstructure:"trading_fee_bps"`
	SlippageMinBps float64 `mapstructure:"slippage_min_bps"`
	SlippageMaxBps float64 `mapstructure:"slippage_max_bps"`
	GasMinUSD      float64 `mapstructure:"gas_min_usd"`
	GasMaxUSD      float64 `mapstructure:"gas_max_usd"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceExporter  string `mapstructure:"trace_exporter"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARB")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Server
	v.BindEnv("server.port", "ARB_SERVER_PORT", "PORT")
	v.BindEnv("server.health_port", "ARB_HEALTH_PORT")

	// Market
	v.BindEnv("market.coingecko_url", "ARB_COINGECKO_URL")
	v.BindEnv("market.fetch_timeout", "ARB_FETCH_TIMEOUT")
	v.BindEnv("market.refresh_interval", "ARB_REFRESH_INTERVAL")
	v.BindEnv("market.ethereum_rpc", "ARB_ETH_RPC_URL", "ETH_RPC_URL")
	v.BindEnv("market.gas_oracle_enabled", "ARB_GAS_ORACLE_ENABLED")

	// Arbitrage
	v.BindEnv("arbitrage.notional", "ARB_NOTIONAL")

	// Trading
	v.BindEnv("trading.tick_interval", "ARB_TICK_INTERVAL")
	v.BindEnv("trading.max_daily_trades", "ARB_MAX_DAILY_TRADES")
	v.BindEnv("trading.seed", "ARB_SEED")
	v.BindEnv("trading.seed_from_clock", "ARB_SEED_FROM_CLOCK")

	// Portfolio
	v.BindEnv("portfolio.starting_balance", "ARB_STARTING_BALANCE")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "arbsim")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Server defaults
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.health_port", 8081)

	// Market defaults
	v.SetDefault("market.exchanges", []string{"PancakeSwap", "Biswap", "ApeSwap", "BabySwap"})
	v.SetDefault("market.symbols", []string{"BNB/BUSD", "CAKE/BUSD", "BUSD/USDT", "BTCB/BUSD"})
	v.SetDefault("market.coingecko_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("market.fetch_timeout", "8s")
	v.SetDefault("market.cache_ttl", "30s")
	v.SetDefault("market.requests_per_min", 30)
	v.SetDefault("market.refresh_interval", "45s")
	v.SetDefault("market.gas_oracle_enabled", false)

	// Arbitrage defaults
	v.SetDefault("arbitrage.notional", 1000)
	v.SetDefault("arbitrage.max_shown", 10)

	// Trading defaults
	v.SetDefault("trading.tick_interval", "10s")
	v.SetDefault("trading.max_daily_trades", 30)
	v.SetDefault("trading.attempt_chance", 0.2)
	v.SetDefault("trading.seed", 1)
	v.SetDefault("trading.seed_from_clock", true)

	// Portfolio defaults
	v.SetDefault("portfolio.starting_balance", 10000)
	v.SetDefault("portfolio.snapshot_interval", "5m")
	v.SetDefault("portfolio.snapshot_threshold", 50)
	v.SetDefault("portfolio.risk_free_rate", 0.1)

	// Costs defaults
	v.SetDefault("costs.trading_fee_bps", 10)
	v.SetDefault("costs.slippage_min_bps", 5)
	v.SetDefault("costs.slippage_max_bps", 20)
	v.SetDefault("costs.gas_min_usd", 2)
	v.SetDefault("costs.gas_max_usd", 6)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "arbsim")
	v.SetDefault("telemetry.trace_exporter", "console")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Market.Exchanges) < 2 {
		return fmt.Errorf("market.exchanges needs at least two entries, got %d", len(c.Market.Exchanges))
	}
	if len(c.Market.Symbols) == 0 {
		return fmt.Errorf("market.symbols cannot be empty")
	}
	if c.Arbitrage.Notional <= 0 {
		return fmt.Errorf("arbitrage.notional must be positive, got %v", c.Arbitrage.Notional)
	}
	if c.Portfolio.StartingBalance <= 0 {
		return fmt.Errorf("portfolio.starting_balance must be positive, got %v", c.Portfolio.StartingBalance)
	}
	if c.Trading.AttemptChance < 0 || c.Trading.AttemptChance > 1 {
		return fmt.Errorf("trading.attempt_chance must be in [0,1], got %v", c.Trading.AttemptChance)
	}
	if c.Costs.SlippageMinBps > c.Costs.SlippageMaxBps {
		return fmt.Errorf("costs.slippage_min_bps exceeds costs.slippage_max_bps")
	}
	if c.Costs.GasMinUSD > c.Costs.GasMaxUSD {
		return fmt.Errorf("costs.gas_min_usd exceeds costs.gas_max_usd")
	}
	if c.Market.GasOracleEnabled && c.Market.EthereumRPC == "" {
		return fmt.Errorf("market.ethereum_rpc is required when the gas oracle is enabled")
	}
	return nil
}
