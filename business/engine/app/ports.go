// Package app orchestrates the market refresh and trading loops.
package app

// EventType tags broadcast events for dashboard consumers.
type EventType string

const (
	EventBotStarted    EventType = "bot_started"
	EventBotStopped    EventType = "bot_stopped"
	EventMarketUpdate  EventType = "market_update"
	EventScan          EventType = "opportunities_scan"
	EventTradeExecuted EventType = "portfolio_trade_executed"
	EventReset         EventType = "portfolio_reset"
	EventWelcome       EventType = "welcome"
)

// Event is a broadcast message for dashboards and reporters.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
}

// Broadcaster fans events out to connected consumers. Implementations must
// not block the caller.
type Broadcaster interface {
	Broadcast(event Event)
}
