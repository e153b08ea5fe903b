// Package ui provides the Bubble Tea TUI for the arbitrage simulator.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	arbdomain "arbsim/business/arbitrage/domain"
	"arbsim/business/engine/app"
	mdapp "arbsim/business/marketdata/app"
	pfapp "arbsim/business/portfolio/app"
	pfdomain "arbsim/business/portfolio/domain"
)

// Reporter bridges engine events into Bubble Tea messages.
type Reporter struct {
	program *tea.Program
}

// NewReporter creates a reporter for the given program.
func NewReporter(program *tea.Program) *Reporter {
	return &Reporter{program: program}
}

// Broadcast implements app.Broadcaster.
func (r *Reporter) Broadcast(event app.Event) {
	data, _ := event.Data.(map[string]any)

	switch event.Type {
	case app.EventBotStarted:
		r.program.Send(BotStateMsg{Running: true})
		if portfolio, ok := data["portfolio"].(pfapp.Status); ok {
			r.program.Send(PortfolioMsg{Portfolio: portfolio})
		}

	case app.EventBotStopped:
		r.program.Send(BotStateMsg{Running: false})

	case app.EventMarketUpdate:
		opps, _ := data["opportunities"].([]arbdomain.Opportunity)
		summary, _ := data["marketSummary"].(mdapp.Summary)
		r.program.Send(MarketUpdateMsg{Opportunities: opps, Summary: summary})

	case app.EventTradeExecuted:
		trade, _ := data["trade"].(*pfdomain.TradeRecord)
		portfolio, _ := data["portfolio"].(pfapp.Status)
		daily, _ := data["dailyTrades"].(int)
		r.program.Send(TradeMsg{Trade: trade, Portfolio: portfolio, DailyTrades: daily})

	case app.EventScan:
		if count, ok := data["opportunities"].(int); ok {
			r.program.Send(ScanMsg{OpportunityCount: count})
		}

	case app.EventReset:
		if portfolio, ok := data["portfolio"].(pfapp.Status); ok {
			r.program.Send(PortfolioMsg{Portfolio: portfolio})
		}
		r.program.Send(LogMsg{Level: "info", Message: event.Message})
	}
}
