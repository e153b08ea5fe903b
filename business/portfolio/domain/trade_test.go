package domain

import (
	"testing"

	"github.com/shopspring/decimal"

	arbdomain "arbsim/business/arbitrage/domain"
	"arbsim/internal/apperror"
)

func validParams() TradeParams {
	return TradeParams{
		Pair:         "BNB/BUSD",
		BuyExchange:  "PancakeSwap",
		SellExchange: "Biswap",
		TradeAmount:  decimal.NewFromInt(1000),
		GrossProfit:  decimal.NewFromInt(20),
		NetProfit:    decimal.NewFromInt(12),
		Costs: arbdomain.CostBreakdown{
			TradingFee: decimal.NewFromInt(1),
			Slippage:   decimal.NewFromInt(2),
			GasCost:    decimal.NewFromInt(5),
			Total:      decimal.NewFromInt(8),
		},
		Success: true,
	}
}

func TestNewTradeRecord(t *testing.T) {
	rec, err := NewTradeRecord(validParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected generated ID")
	}
	if rec.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
	if !rec.PortfolioValueBefore.IsZero() || !rec.PortfolioValueAfter.IsZero() {
		t.Error("portfolio values should be unset until the ledger applies the trade")
	}
}

func TestNewTradeRecordGeneratesUniqueIDs(t *testing.T) {
	a, _ := NewTradeRecord(validParams())
	b, _ := NewTradeRecord(validParams())
	if a.ID == b.ID {
		t.Errorf("two records share ID %s", a.ID)
	}
}

func TestNewTradeRecordValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*TradeParams)
		wantCode apperror.Code
	}{
		{
			name:     "missing pair",
			mutate:   func(p *TradeParams) { p.Pair = "" },
			wantCode: apperror.CodeInvalidInput,
		},
		{
			name:     "same exchange both sides",
			mutate:   func(p *TradeParams) { p.SellExchange = p.BuyExchange },
			wantCode: apperror.CodeInvalidInput,
		},
		{
			name:     "zero trade amount",
			mutate:   func(p *TradeParams) { p.TradeAmount = decimal.Zero },
			wantCode: apperror.CodeInvalidTradeSize,
		},
		{
			name:     "negative trade amount",
			mutate:   func(p *TradeParams) { p.TradeAmount = decimal.NewFromInt(-5) },
			wantCode: apperror.CodeInvalidTradeSize,
		},
		{
			name:     "negative gas",
			mutate:   func(p *TradeParams) { p.Costs.GasCost = decimal.NewFromInt(-1) },
			wantCode: apperror.CodeInvalidInput,
		},
		{
			name: "failed trade with positive net",
			mutate: func(p *TradeParams) {
				p.Success = false
				p.NetProfit = decimal.NewFromInt(3)
			},
			wantCode: apperror.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.mutate(&params)

			rec, err := NewTradeRecord(params)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if rec != nil {
				t.Error("expected nil record on validation failure")
			}
			if !apperror.HasCode(err, tt.wantCode) {
				t.Errorf("code = %v, want %v", apperror.GetCode(err), tt.wantCode)
			}
		})
	}
}
