package app

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	arbdomain "arbsim/business/arbitrage/domain"
	"arbsim/business/portfolio/domain"
)

func newTestLedger(balance int64) *Ledger {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLedger(decimal.NewFromInt(balance), 5*time.Minute,
		decimal.NewFromInt(50), 0.1, logger)
}

func record(t *testing.T, pair string, amount, net string, success bool) *domain.TradeRecord {
	t.Helper()

	gas := decimal.RequireFromString("3")
	netD := decimal.RequireFromString(net)
	if !success {
		netD = gas.Neg()
	}

	rec, err := domain.NewTradeRecord(domain.TradeParams{
		Pair:         pair,
		BuyExchange:  "PancakeSwap",
		SellExchange: "Biswap",
		TradeAmount:  decimal.RequireFromString(amount),
		GrossProfit:  decimal.RequireFromString(net).Add(gas),
		NetProfit:    netD,
		Costs: arbdomain.CostBreakdown{
			TradingFee: decimal.NewFromInt(1),
			Slippage:   decimal.NewFromInt(1),
			GasCost:    gas,
			Total:      decimal.NewFromInt(5),
		},
		Success: success,
	})
	require.NoError(t, err)
	return rec
}

func TestResetInvariants(t *testing.T) {
	l := newTestLedger(10000)

	status := l.Status()
	require.True(t, status.TotalValue.Equal(decimal.NewFromInt(10000)))
	require.True(t, status.CurrentBalance.Equal(decimal.NewFromInt(10000)))
	require.True(t, status.Positions["BUSD"].Equal(decimal.NewFromInt(6000)))
	require.True(t, status.Positions["USDT"].Equal(decimal.NewFromInt(4000)))
	require.True(t, status.Positions["BNB"].IsZero())
	require.Empty(t, status.RecentTrades)
	require.Len(t, status.History, 1)
	require.Zero(t, status.Metrics.TotalTrades)
	require.Zero(t, status.TotalReturnPct)
}

func TestApplyTradeSuccessCreditsCash(t *testing.T) {
	l := newTestLedger(10000)

	rec := record(t, "BNB/BUSD", "2800", "150", true)
	snap := l.ApplyTrade(rec)

	// Net lands in BUSD; the position move is value neutral.
	require.True(t, snap.TotalValue.Equal(decimal.NewFromInt(10150)),
		"total value %s, want 10150", snap.TotalValue)
	require.True(t, rec.PortfolioValueBefore.Equal(decimal.NewFromInt(10000)))
	require.True(t, rec.PortfolioValueAfter.Equal(decimal.NewFromInt(10150)))

	status := l.Status()
	// 1% of the 2800 notional moved from BUSD into BNB at $280.
	require.True(t, status.Positions["BNB"].Equal(decimal.RequireFromString("0.1")),
		"BNB position %s", status.Positions["BNB"])
	require.True(t, status.Positions["BUSD"].Equal(decimal.NewFromInt(6122)),
		"BUSD %s, want 6122", status.Positions["BUSD"])
	require.Len(t, status.RecentTrades, 1)
	require.Equal(t, rec.ID, status.RecentTrades[0].ID)
}

func TestApplyTradeStablePairHoldsNoPosition(t *testing.T) {
	l := newTestLedger(10000)

	l.ApplyTrade(record(t, "BUSD/USDT", "2000", "40", true))

	status := l.Status()
	require.True(t, status.Positions["BNB"].IsZero())
	require.True(t, status.Positions["CAKE"].IsZero())
	require.True(t, status.TotalValue.Equal(decimal.NewFromInt(10040)))
}

func TestApplyTradeFailureSinksGasOnly(t *testing.T) {
	l := newTestLedger(10000)

	before := l.Status()
	rec := record(t, "BNB/BUSD", "2000", "0", false)
	snap := l.ApplyTrade(rec)

	// Exactly the gas cost is lost, nothing else moves.
	require.True(t, snap.TotalValue.Equal(decimal.NewFromInt(9997)),
		"total value %s, want 9997", snap.TotalValue)
	require.True(t, snap.CashBalance.LessThan(before.CurrentBalance))
	require.True(t, l.Status().Positions["BNB"].IsZero(),
		"failed trade must not accumulate a position")
}

func TestApplyTradeCashFloorsAtZero(t *testing.T) {
	l := newTestLedger(10)

	// BUSD starts at 6; repeated 3 dollar gas losses floor it at zero
	// instead of going negative.
	for i := 0; i < 5; i++ {
		l.ApplyTrade(record(t, "BNB/BUSD", "100", "0", false))
	}

	status := l.Status()
	require.False(t, status.Positions["BUSD"].IsNegative())
	require.True(t, status.Positions["USDT"].Equal(decimal.NewFromInt(4)))
}

func TestTradeHistoryBounded(t *testing.T) {
	l := newTestLedger(100000)

	for i := 0; i < maxTradeHistory+20; i++ {
		l.ApplyTrade(record(t, "BUSD/USDT", "100", "0.001", true))
	}

	status := l.Status()
	require.Equal(t, maxTradeHistory, status.Metrics.TotalTrades)
	require.Len(t, status.RecentTrades, 15)
}

func TestSnapshotGatingOnValueDelta(t *testing.T) {
	l := newTestLedger(10000)

	// +150 exceeds the $50 threshold and appends a curve point.
	l.ApplyTrade(record(t, "BNB/BUSD", "2000", "150", true))
	require.Len(t, l.Status().History, 2)

	// +1 stays under the threshold; no new point.
	l.ApplyTrade(record(t, "BNB/BUSD", "200", "1", true))
	require.Len(t, l.Status().History, 2)
}

func TestStatusReturnsTradeCopies(t *testing.T) {
	l := newTestLedger(10000)
	l.ApplyTrade(record(t, "BNB/BUSD", "2800", "150", true))

	// Tampering with the projection must not reach the ledger's history.
	status := l.Status()
	status.RecentTrades[0].NetProfit = decimal.NewFromInt(-999999)

	l.ApplyTrade(record(t, "BNB/BUSD", "200", "1", true))

	after := l.Status()
	require.True(t, after.RecentTrades[1].NetProfit.Equal(decimal.NewFromInt(150)),
		"history net profit %s, want the original 150", after.RecentTrades[1].NetProfit)

	report := l.Report()
	require.True(t, report.RecentTrades[1].NetProfit.Equal(decimal.NewFromInt(150)))
}

func TestResetIgnoresNonPositiveBalance(t *testing.T) {
	l := newTestLedger(10000)

	l.Reset(decimal.Zero)
	l.Reset(decimal.NewFromInt(-500))

	status := l.Status()
	require.True(t, status.TotalValue.Equal(decimal.NewFromInt(10000)))
	require.True(t, status.StartingBalance.Equal(decimal.NewFromInt(10000)))

	// The ledger still trades normally afterwards.
	l.ApplyTrade(record(t, "BUSD/USDT", "100", "1", true))
	require.True(t, l.TotalValue().Equal(decimal.NewFromInt(10001)))
}

func TestResetClearsAfterTrading(t *testing.T) {
	l := newTestLedger(10000)
	l.ApplyTrade(record(t, "BNB/BUSD", "2000", "150", true))

	l.Reset(decimal.NewFromInt(25000))

	status := l.Status()
	require.True(t, status.TotalValue.Equal(decimal.NewFromInt(25000)))
	require.True(t, status.Positions["BUSD"].Equal(decimal.NewFromInt(15000)))
	require.True(t, status.Positions["BNB"].IsZero())
	require.Empty(t, status.RecentTrades)
	require.Len(t, status.History, 1)
}

func TestReportMirrorsStatus(t *testing.T) {
	l := newTestLedger(10000)
	l.ApplyTrade(record(t, "BNB/BUSD", "2800", "150", true))

	report := l.Report()
	require.True(t, report.Summary.StartingBalance.Equal(decimal.NewFromInt(10000)))
	require.True(t, report.Summary.CurrentValue.Equal(decimal.NewFromInt(10150)))
	require.True(t, report.Summary.TotalReturnAbs.Equal(decimal.NewFromInt(150)))
	require.Equal(t, 1, report.Summary.TotalTrades)
	require.Len(t, report.RecentTrades, 1)
}
