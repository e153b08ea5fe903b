package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Market data error codes
const (
	CodeInvalidQuote      Code = "INVALID_QUOTE"
	CodeFetchTimeout      Code = "FETCH_TIMEOUT"
	CodeFetchFailure      Code = "FETCH_FAILURE"
	CodeInsufficientData  Code = "INSUFFICIENT_DATA"
	CodeCoinGeckoAPIError Code = "COINGECKO_API_ERROR"
	CodeCircuitOpen       Code = "CIRCUIT_OPEN"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
)

// Simulation error codes
const (
	CodeInvalidNotional   Code = "INVALID_NOTIONAL"
	CodeInvalidTradeSize  Code = "INVALID_TRADE_SIZE"
	CodeGasOracleError    Code = "GAS_ORACLE_ERROR"
	CodeBotAlreadyRunning Code = "BOT_ALREADY_RUNNING"
)

// messages maps codes to default human-readable messages.
var messages = map[Code]string{
	CodeInvalidInput:       "invalid input",
	CodeConfigurationError: "configuration error",
	CodeInternalError:      "internal error",
	CodeUnknownError:       "unknown error",

	CodeInvalidQuote:      "invalid quote data",
	CodeFetchTimeout:      "price fetch timed out",
	CodeFetchFailure:      "price fetch failed",
	CodeInsufficientData:  "not enough quotes to scan",
	CodeCoinGeckoAPIError: "coingecko api error",
	CodeCircuitOpen:       "quote source circuit breaker open",
	CodeRateLimitExceeded: "rate limit exceeded",

	CodeInvalidNotional:   "trade notional must be positive",
	CodeInvalidTradeSize:  "invalid trade size",
	CodeGasOracleError:    "gas oracle error",
	CodeBotAlreadyRunning: "bot is already running",
}
