package infra

import "arbsim/business/engine/app"

// MultiBroadcaster fans one event out to several broadcasters.
type MultiBroadcaster struct {
	targets []app.Broadcaster
}

// NewMultiBroadcaster creates a fan-out broadcaster.
func NewMultiBroadcaster(targets ...app.Broadcaster) *MultiBroadcaster {
	return &MultiBroadcaster{targets: targets}
}

// Broadcast delivers the event to every target in order.
func (m *MultiBroadcaster) Broadcast(event app.Event) {
	for _, t := range m.targets {
		t.Broadcast(event)
	}
}
