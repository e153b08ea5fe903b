// Package domain contains the portfolio ledger types.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	arbdomain "arbsim/business/arbitrage/domain"
	"arbsim/internal/apperror"
)

// TradeRecord is the outcome of one simulated trade. Records are built
// through NewTradeRecord and not modified afterwards, except for the
// portfolio value fields the ledger fills in when the trade is applied.
type TradeRecord struct {
	ID                   string                  `json:"id"`
	Timestamp            time.Time               `json:"timestamp"`
	Pair                 string                  `json:"pair"`
	BuyExchange          string                  `json:"buyExchange"`
	SellExchange         string                  `json:"sellExchange"`
	TradeAmount          decimal.Decimal         `json:"tradeAmount"`
	GrossProfit          decimal.Decimal         `json:"grossProfit"`
	NetProfit            decimal.Decimal         `json:"netProfit"`
	Costs                arbdomain.CostBreakdown `json:"costs"`
	Success              bool                    `json:"success"`
	PortfolioValueBefore decimal.Decimal         `json:"portfolioValueBefore"`
	PortfolioValueAfter  decimal.Decimal         `json:"portfolioValueAfter"`
}

// TradeParams holds the inputs for a new trade record.
type TradeParams struct {
	Pair         string
	BuyExchange  string
	SellExchange string
	TradeAmount  decimal.Decimal
	GrossProfit  decimal.Decimal
	NetProfit    decimal.Decimal
	Costs        arbdomain.CostBreakdown
	Success      bool
}

// NewTradeRecord validates the params and builds a record with a fresh ID.
func NewTradeRecord(p TradeParams) (*TradeRecord, error) {
	if p.Pair == "" || p.BuyExchange == "" || p.SellExchange == "" {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("trade record missing pair or exchanges"))
	}
	if p.BuyExchange == p.SellExchange {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("buy and sell exchange both %q", p.BuyExchange)))
	}
	if !p.TradeAmount.IsPositive() {
		return nil, apperror.New(apperror.CodeInvalidTradeSize,
			apperror.WithContext(fmt.Sprintf("trade amount %s", p.TradeAmount)))
	}
	if p.Costs.TradingFee.IsNegative() || p.Costs.Slippage.IsNegative() || p.Costs.GasCost.IsNegative() {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("negative cost component"))
	}
	if !p.Success && p.NetProfit.IsPositive() {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("failed trade with positive net profit"))
	}

	return &TradeRecord{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		Pair:         p.Pair,
		BuyExchange:  p.BuyExchange,
		SellExchange: p.SellExchange,
		TradeAmount:  p.TradeAmount,
		GrossProfit:  p.GrossProfit,
		NetProfit:    p.NetProfit,
		Costs:        p.Costs,
		Success:      p.Success,
	}, nil
}
