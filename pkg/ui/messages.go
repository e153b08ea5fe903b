// Package ui provides the Bubble Tea TUI for the arbitrage simulator.
package ui

import (
	arbdomain "arbsim/business/arbitrage/domain"
	mdapp "arbsim/business/marketdata/app"
	pfapp "arbsim/business/portfolio/app"
	pfdomain "arbsim/business/portfolio/domain"
)

// Message types for TUI updates

// MarketUpdateMsg is sent when the opportunity cache is refreshed.
type MarketUpdateMsg struct {
	Opportunities []arbdomain.Opportunity
	Summary       mdapp.Summary
}

// TradeMsg is sent when a simulated trade has been applied.
type TradeMsg struct {
	Trade       *pfdomain.TradeRecord
	Portfolio   pfapp.Status
	DailyTrades int
}

// PortfolioMsg is sent on start/stop/reset with the current portfolio.
type PortfolioMsg struct {
	Portfolio pfapp.Status
}

// BotStateMsg is sent when the bot starts or stops.
type BotStateMsg struct {
	Running bool
}

// ScanMsg is sent on trading ticks that did not execute a trade.
type ScanMsg struct {
	OpportunityCount int
}

// LogMsg is sent to display a log line in the activity feed.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// TickMsg is sent periodically for clock updates.
type TickMsg struct{}
