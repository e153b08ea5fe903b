package domain

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
)

func testParams() CostModelParams {
	return CostModelParams{
		TradingFeeBps:  decimal.NewFromInt(10),
		SlippageMinBps: decimal.NewFromInt(5),
		SlippageMaxBps: decimal.NewFromInt(20),
		GasMinUSD:      decimal.NewFromInt(2),
		GasMaxUSD:      decimal.NewFromInt(6),
	}
}

type fixedGas struct {
	usd decimal.Decimal
	ok  bool
}

func (f fixedGas) GasUSD() (decimal.Decimal, bool) { return f.usd, f.ok }

func TestEstimateComponents(t *testing.T) {
	m := NewCostModel(testParams(), rand.New(rand.NewPCG(1, 0)), nil)
	notional := decimal.NewFromInt(1000)

	// 40 bps spread: slippage = 0.3*40 = 12 bps.
	costs := m.Estimate(notional, decimal.NewFromInt(40))

	if want := decimal.NewFromInt(1); !costs.TradingFee.Equal(want) {
		t.Errorf("TradingFee = %s, want %s", costs.TradingFee, want)
	}
	if want := decimal.RequireFromString("1.2"); !costs.Slippage.Equal(want) {
		t.Errorf("Slippage = %s, want %s", costs.Slippage, want)
	}
	gas := costs.GasCost.InexactFloat64()
	if gas < 2 || gas > 6 {
		t.Errorf("GasCost %v outside [2, 6]", gas)
	}
	if want := costs.TradingFee.Add(costs.Slippage).Add(costs.GasCost); !costs.Total.Equal(want) {
		t.Errorf("Total = %s, want sum of components %s", costs.Total, want)
	}
}

func TestEstimateSlippageClamp(t *testing.T) {
	m := NewCostModel(testParams(), rand.New(rand.NewPCG(1, 0)), nil)
	notional := decimal.NewFromInt(10000)

	tests := []struct {
		name      string
		spreadBps string
		wantSlip  string // in USD on 10000 notional
	}{
		{"below floor", "5", "5"},     // 1.5 bps -> clamped to 5 bps
		{"above ceiling", "200", "20"}, // 60 bps -> clamped to 20 bps
		{"in band", "40", "12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			costs := m.Estimate(notional, decimal.RequireFromString(tt.spreadBps))
			if want := decimal.RequireFromString(tt.wantSlip); !costs.Slippage.Equal(want) {
				t.Errorf("Slippage = %s, want %s", costs.Slippage, want)
			}
		})
	}
}

func TestEstimateNonNegative(t *testing.T) {
	m := NewCostModel(testParams(), rand.New(rand.NewPCG(3, 0)), nil)

	for i := 0; i < 100; i++ {
		costs := m.Estimate(decimal.NewFromInt(500), decimal.NewFromInt(30))
		if costs.TradingFee.IsNegative() || costs.Slippage.IsNegative() ||
			costs.GasCost.IsNegative() || costs.Total.IsNegative() {
			t.Fatalf("negative cost component: %+v", costs)
		}
	}
}

func TestGasQuoterClampedToBand(t *testing.T) {
	tests := []struct {
		name    string
		quoted  string
		wantGas string
	}{
		{"above band", "12", "6"},
		{"below band", "0.5", "2"},
		{"inside band", "3.7", "3.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewCostModel(testParams(), rand.New(rand.NewPCG(1, 0)),
				fixedGas{usd: decimal.RequireFromString(tt.quoted), ok: true})

			costs := m.Estimate(decimal.NewFromInt(1000), decimal.NewFromInt(40))
			if want := decimal.RequireFromString(tt.wantGas); !costs.GasCost.Equal(want) {
				t.Errorf("GasCost = %s, want %s", costs.GasCost, want)
			}
		})
	}
}

func TestGasQuoterUnavailableFallsBackToDraw(t *testing.T) {
	m := NewCostModel(testParams(), rand.New(rand.NewPCG(1, 0)), fixedGas{ok: false})

	costs := m.Estimate(decimal.NewFromInt(1000), decimal.NewFromInt(40))
	gas := costs.GasCost.InexactFloat64()
	if gas < 2 || gas > 6 {
		t.Errorf("GasCost %v outside [2, 6]", gas)
	}
}
