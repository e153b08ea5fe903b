// Package app implements the simulated portfolio ledger.
package app

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	mddomain "arbsim/business/marketdata/domain"
	"arbsim/business/portfolio/domain"
)

const (
	maxTradeHistory = 500
	maxEquityCurve  = 200

	// positionFraction of a winning trade's notional is kept as a holding
	// in the base asset, funded from BUSD.
	positionFraction = "0.01"
)

// Status is the read-only projection of the ledger.
type Status struct {
	StartingBalance decimal.Decimal            `json:"startingBalance"`
	CurrentBalance  decimal.Decimal            `json:"currentBalance"`
	TotalValue      decimal.Decimal            `json:"totalPortfolioValue"`
	TotalReturnPct  float64                    `json:"totalReturn"`
	TodayReturnPct  float64                    `json:"todayReturn"`
	Positions       map[string]decimal.Decimal `json:"positions"`
	Metrics         domain.RiskMetrics         `json:"metrics"`
	RecentTrades    []domain.TradeRecord       `json:"recentTrades"`
	History         []domain.Snapshot          `json:"portfolioHistory"`
	LastUpdated     time.Time                  `json:"lastUpdated"`
}

// Report is the performance report projection.
type Report struct {
	Summary struct {
		StartingBalance decimal.Decimal `json:"startingBalance"`
		CurrentValue    decimal.Decimal `json:"currentValue"`
		TotalReturnPct  float64         `json:"totalReturn"`
		TotalReturnAbs  decimal.Decimal `json:"totalReturnAbs"`
		BestTrade       float64         `json:"bestTrade"`
		WorstTrade      float64         `json:"worstTrade"`
		WinRate         float64         `json:"winRate"`
		TotalTrades     int             `json:"totalTrades"`
	} `json:"summary"`
	Performance struct {
		SharpeRatio    float64 `json:"sharpeRatio"`
		MaxDrawdownPct float64 `json:"maxDrawdown"`
		Volatility     float64 `json:"volatility"`
		AvgDailyReturn float64 `json:"avgDailyReturn"`
	} `json:"performance"`
	Positions    map[string]decimal.Decimal `json:"positions"`
	RecentTrades []domain.TradeRecord       `json:"recentTrades"`
	History      []domain.Snapshot          `json:"history"`
}

// Ledger tracks balances, positions, trade history and the equity curve.
// All mutation goes through ApplyTrade and Reset under one mutex.
type Ledger struct {
	snapshotInterval  time.Duration
	snapshotThreshold decimal.Decimal
	riskFreeRate      float64
	logger            *slog.Logger

	mu              sync.Mutex
	startingBalance decimal.Decimal
	positions       map[string]decimal.Decimal
	totalValue      decimal.Decimal
	trades          []*domain.TradeRecord
	curve           []domain.Snapshot
	dailyReturns    []float64
	metrics         domain.RiskMetrics
}

// NewLedger creates a ledger seeded with the starting balance.
func NewLedger(startingBalance decimal.Decimal, snapshotInterval time.Duration, snapshotThreshold decimal.Decimal, riskFreeRate float64, logger *slog.Logger) *Ledger {
	l := &Ledger{
		snapshotInterval:  snapshotInterval,
		snapshotThreshold: snapshotThreshold,
		riskFreeRate:      riskFreeRate,
		logger:            logger,
		positions:         make(map[string]decimal.Decimal),
		curve:             []domain.Snapshot{{Timestamp: time.Now()}},
	}
	l.Reset(startingBalance)
	return l
}

// Reset reinitializes the ledger: 60/40 BUSD/USDT split, cleared histories
// and a single seed snapshot.
func (l *Ledger) Reset(balance decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !balance.IsPositive() {
		l.logger.Warn("reset ignored, balance must be positive", "balance", balance)
		return
	}

	l.startingBalance = balance
	l.positions = map[string]decimal.Decimal{
		"BNB":  decimal.Zero,
		"CAKE": decimal.Zero,
		"BTCB": decimal.Zero,
		"BUSD": balance.Mul(decimal.RequireFromString("0.6")),
		"USDT": balance.Mul(decimal.RequireFromString("0.4")),
	}
	l.totalValue = balance
	l.trades = nil
	l.dailyReturns = nil
	l.metrics = domain.RiskMetrics{}
	l.curve = []domain.Snapshot{{
		Timestamp:   time.Now(),
		TotalValue:  balance,
		CashBalance: balance,
		Positions:   domain.ClonePositions(l.positions),
	}}

	l.logger.Info("portfolio reset", "balance", balance)
}

// ApplyTrade applies a finished trade record atomically and returns the
// resulting snapshot. The record's portfolio value fields are filled in.
func (l *Ledger) ApplyTrade(rec *domain.TradeRecord) domain.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec.PortfolioValueBefore = l.totalValue

	// Profits and losses settle in BUSD; cash never goes negative.
	busd := l.positions["BUSD"].Add(rec.NetProfit)
	if busd.IsNegative() {
		busd = decimal.Zero
	}
	l.positions["BUSD"] = busd

	if rec.Success {
		l.accumulatePosition(rec)
	}

	l.trades = append(l.trades, rec)
	if len(l.trades) > maxTradeHistory {
		l.trades = l.trades[len(l.trades)-maxTradeHistory:]
	}

	l.totalValue = l.valueLocked()
	rec.PortfolioValueAfter = l.totalValue

	l.maybeSnapshot()
	l.metrics = domain.ComputeRiskMetrics(l.dailyReturns, l.curve, l.trades,
		l.startingBalance, l.totalValue, l.riskFreeRate)

	l.logger.Info("trade applied",
		"pair", rec.Pair, "success", rec.Success,
		"net_profit", rec.NetProfit, "portfolio_value", l.totalValue)

	return l.snapshotLocked()
}

// accumulatePosition moves a sliver of the trade's notional from BUSD into
// the base asset at its reference price. The move is value neutral and is
// capped at the available BUSD.
func (l *Ledger) accumulatePosition(rec *domain.TradeRecord) {
	base := mddomain.BaseAsset(rec.Pair)
	if mddomain.IsStable(base) {
		return
	}
	refPrice := mddomain.ReferencePrice(base)
	if !refPrice.IsPositive() {
		return
	}

	move := rec.TradeAmount.Mul(decimal.RequireFromString(positionFraction))
	if move.GreaterThan(l.positions["BUSD"]) {
		move = l.positions["BUSD"]
	}
	if !move.IsPositive() {
		return
	}

	l.positions["BUSD"] = l.positions["BUSD"].Sub(move)
	l.positions[base] = l.positions[base].Add(move.Div(refPrice))
}

// valueLocked revalues the portfolio: stables at par, tokens at their
// reference price.
func (l *Ledger) valueLocked() decimal.Decimal {
	total := decimal.Zero
	for asset, amount := range l.positions {
		if mddomain.IsStable(asset) {
			total = total.Add(amount)
			continue
		}
		total = total.Add(amount.Mul(mddomain.ReferencePrice(asset)))
	}
	return total
}

func (l *Ledger) cashLocked() decimal.Decimal {
	return l.positions["BUSD"].Add(l.positions["USDT"])
}

// maybeSnapshot appends an equity curve point when enough time has passed
// or the value moved beyond the threshold.
func (l *Ledger) maybeSnapshot() {
	last := l.curve[len(l.curve)-1]
	elapsed := time.Since(last.Timestamp)
	delta := l.totalValue.Sub(last.TotalValue)

	if elapsed <= l.snapshotInterval && delta.Abs().LessThanOrEqual(l.snapshotThreshold) {
		return
	}

	ret := 0.0
	if last.TotalValue.IsPositive() {
		ret = delta.Div(last.TotalValue).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	l.curve = append(l.curve, domain.Snapshot{
		Timestamp:      time.Now(),
		TotalValue:     l.totalValue,
		CashBalance:    l.cashLocked(),
		Positions:      domain.ClonePositions(l.positions),
		DailyReturnPct: ret,
		TradeCount:     len(l.trades),
	})
	if len(l.curve) > maxEquityCurve {
		l.curve = l.curve[len(l.curve)-maxEquityCurve:]
	}

	l.dailyReturns = append(l.dailyReturns, ret)
	if len(l.dailyReturns) > maxEquityCurve {
		l.dailyReturns = l.dailyReturns[len(l.dailyReturns)-maxEquityCurve:]
	}
}

func (l *Ledger) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Timestamp:   time.Now(),
		TotalValue:  l.totalValue,
		CashBalance: l.cashLocked(),
		Positions:   domain.ClonePositions(l.positions),
		TradeCount:  len(l.trades),
	}
}

// TotalValue returns the current portfolio value.
func (l *Ledger) TotalValue() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalValue
}

// Status returns the read-only projection used by the API and the UI.
func (l *Ledger) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	totalReturn := 0.0
	if l.startingBalance.IsPositive() {
		totalReturn = l.totalValue.Sub(l.startingBalance).
			Div(l.startingBalance).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	todayReturn := 0.0
	if len(l.dailyReturns) > 0 {
		todayReturn = l.dailyReturns[len(l.dailyReturns)-1]
	}

	return Status{
		StartingBalance: l.startingBalance,
		CurrentBalance:  l.cashLocked(),
		TotalValue:      l.totalValue,
		TotalReturnPct:  totalReturn,
		TodayReturnPct:  todayReturn,
		Positions:       domain.ClonePositions(l.positions),
		Metrics:         l.metrics,
		RecentTrades:    l.recentTradesLocked(15),
		History:         l.historyTailLocked(50),
		LastUpdated:     time.Now(),
	}
}

// Report builds the performance report projection.
func (l *Ledger) Report() Report {
	status := l.Status()

	var r Report
	r.Summary.StartingBalance = status.StartingBalance
	r.Summary.CurrentValue = status.TotalValue
	r.Summary.TotalReturnPct = status.TotalReturnPct
	r.Summary.TotalReturnAbs = status.TotalValue.Sub(status.StartingBalance)
	r.Summary.BestTrade = status.Metrics.BestTrade
	r.Summary.WorstTrade = status.Metrics.WorstTrade
	r.Summary.WinRate = status.Metrics.WinRate
	r.Summary.TotalTrades = status.Metrics.TotalTrades
	r.Performance.SharpeRatio = status.Metrics.SharpeRatio
	r.Performance.MaxDrawdownPct = status.Metrics.MaxDrawdownPct
	r.Performance.Volatility = status.Metrics.Volatility
	r.Performance.AvgDailyReturn = status.Metrics.AvgDailyReturn
	r.Positions = status.Positions
	r.RecentTrades = status.RecentTrades
	r.History = status.History
	return r
}

// recentTradesLocked returns copies of the last n trades, newest first.
// Records in the live history stay unreachable from callers.
func (l *Ledger) recentTradesLocked(n int) []domain.TradeRecord {
	if len(l.trades) < n {
		n = len(l.trades)
	}
	out := make([]domain.TradeRecord, 0, n)
	for i := len(l.trades) - 1; i >= len(l.trades)-n; i-- {
		out = append(out, *l.trades[i])
	}
	return out
}

func (l *Ledger) historyTailLocked(n int) []domain.Snapshot {
	if len(l.curve) < n {
		n = len(l.curve)
	}
	out := make([]domain.Snapshot, n)
	copy(out, l.curve[len(l.curve)-n:])
	return out
}
