package services

import (
	"time"

	"wallpaperd/metrics"
	"wallpaperd/types"
	"wallpaperd/websocket"
)

// HubObserver publishes every state change of an item to the WebSocket hub
func HubObserver(hub websocket.Hub) Observer {
	return func(item *Item, prev, next types.ItemState) {
		hub.Broadcast(StateMessage(item, prev, next))
	}
}

// MetricsObserver counts state transitions
func MetricsObserver(m metrics.Metrics) Observer {
	return func(_ *Item, prev, next types.ItemState) {
		m.ObserveTransition(string(prev.Kind()), string(next.Kind()))
	}
}

// StateMessage builds the hub message for a transition
func StateMessage(item *Item, prev, next types.ItemState) types.StateMessage {
	view := types.ViewOf(next)
	msg := types.StateMessage{
		Name:       item.Name(),
		Type:       "state",
		State:      next.Kind(),
		Asset:      view.Asset,
		Selectable: CanSelect(next),
		Message:    view.Error,
		Timestamp:  time.Now(),
	}
	if prev != nil {
		msg.Previous = prev.Kind()
	}
	return msg
}
