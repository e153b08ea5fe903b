// Package infra contains broadcaster adapters for the engine context.
package infra

import (
	"fmt"
	"io"
	"os"
	"time"

	arbdomain "arbsim/business/arbitrage/domain"
	"arbsim/business/engine/app"
	pfdomain "arbsim/business/portfolio/domain"
)

// ConsoleReporter implements app.Broadcaster for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// Broadcast prints a human readable line per event.
func (r *ConsoleReporter) Broadcast(event app.Event) {
	ts := time.Now().Format("15:04:05")

	switch event.Type {
	case app.EventBotStarted:
		fmt.Fprintln(r.out, "Arbitrage Simulator Started")
		fmt.Fprintln(r.out, "===========================")
	case app.EventBotStopped:
		fmt.Fprintln(r.out, "")
		fmt.Fprintln(r.out, "Arbitrage Simulator Stopped")
	case app.EventTradeExecuted:
		r.printTrade(ts, event)
	case app.EventReset:
		fmt.Fprintf(r.out, "[%s] %s\n", ts, event.Message)
	case app.EventMarketUpdate:
		if data, ok := event.Data.(map[string]any); ok {
			if opps, ok := data["opportunities"].([]arbdomain.Opportunity); ok {
				fmt.Fprintf(r.out, "[%s] market update: %d opportunities\n", ts, len(opps))
			} else {
				fmt.Fprintf(r.out, "[%s] market update\n", ts)
			}
		}
	}
}

func (r *ConsoleReporter) printTrade(ts string, event app.Event) {
	data, ok := event.Data.(map[string]any)
	if !ok {
		return
	}
	rec, ok := data["trade"].(*pfdomain.TradeRecord)
	if !ok {
		return
	}

	outcome := "FAILED"
	if rec.Success {
		outcome = "OK"
	}
	fmt.Fprintf(r.out, "[%s] TRADE %-6s %s %s->%s | size $%s | net $%s | portfolio $%s\n",
		ts, outcome, rec.Pair, rec.BuyExchange, rec.SellExchange,
		rec.TradeAmount.StringFixed(0),
		rec.NetProfit.StringFixed(2),
		rec.PortfolioValueAfter.StringFixed(2))
}
