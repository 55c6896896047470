package api

import (
	"sync"
)

// EventType identifies the kind of telemetry carried by a BroadcastEvent.
type EventType string

const (
	// EventTypeCycle reports one pipe completing a work cycle.
	EventTypeCycle EventType = "cycle"
	// EventTypeBest reports a new best-scoring candidate for a pipe.
	EventTypeBest EventType = "best"
)

// BroadcastEvent is sent to every subscribed WebSocket client.
type BroadcastEvent struct {
	Type     EventType              `json:"type"`
	PipeName string                 `json:"pipeName"`
	Data     map[string]interface{} `json:"data"`
}

// Subscription represents one client's live feed of broadcast events.
type Subscription struct {
	EventTypes map[EventType]bool
	Channel    chan BroadcastEvent
}

// Broadcaster fans telemetry events out to every subscribed WebSocket
// client. One Broadcaster serves the whole process: BEAST runs a single
// pipeline per server, so there is no session ID to filter on.
type Broadcaster struct {
	mu            sync.RWMutex
	subscriptions map[*Subscription]bool
	broadcast     chan BroadcastEvent
	register      chan *Subscription
	unregister    chan *Subscription
	done          chan struct{}
}

// NewBroadcaster creates and starts a new event broadcaster.
func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{
		subscriptions: make(map[*Subscription]bool),
		broadcast:     make(chan BroadcastEvent, 256),
		register:      make(chan *Subscription),
		unregister:    make(chan *Subscription),
		done:          make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broadcaster) run() {
	for {
		select {
		case sub := <-b.register:
			b.mu.Lock()
			b.subscriptions[sub] = true
			b.mu.Unlock()

		case sub := <-b.unregister:
			b.mu.Lock()
			if b.subscriptions[sub] {
				delete(b.subscriptions, sub)
				close(sub.Channel)
			}
			b.mu.Unlock()

		case event := <-b.broadcast:
			b.mu.RLock()
			for sub := range b.subscriptions {
				if len(sub.EventTypes) > 0 && !sub.EventTypes[event.Type] {
					continue
				}
				select {
				case sub.Channel <- event:
				default:
					// client too slow, drop this event
				}
			}
			b.mu.RUnlock()

		case <-b.done:
			b.mu.Lock()
			for sub := range b.subscriptions {
				close(sub.Channel)
			}
			b.subscriptions = make(map[*Subscription]bool)
			b.mu.Unlock()
			return
		}
	}
}

// Subscribe creates a new subscription. eventTypes filters by type; empty
// means all types.
func (b *Broadcaster) Subscribe(eventTypes []EventType) *Subscription {
	eventTypeMap := make(map[EventType]bool)
	for _, et := range eventTypes {
		eventTypeMap[et] = true
	}

	sub := &Subscription{
		EventTypes: eventTypeMap,
		Channel:    make(chan BroadcastEvent, 64),
	}

	b.register <- sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.unregister <- sub
}

// Broadcast sends an event to all matching subscriptions, dropping it if
// the broadcaster's internal queue is full.
func (b *Broadcaster) Broadcast(event BroadcastEvent) {
	select {
	case b.broadcast <- event:
	default:
	}
}

// PipeCycle implements pipeline.EventSink.
func (b *Broadcaster) PipeCycle(name string, saturated bool) {
	b.Broadcast(BroadcastEvent{
		Type:     EventTypeCycle,
		PipeName: name,
		Data: map[string]interface{}{
			"saturated": saturated,
		},
	})
}

// BestScore implements pipeline.EventSink.
func (b *Broadcaster) BestScore(name string, score float64) {
	b.Broadcast(BroadcastEvent{
		Type:     EventTypeBest,
		PipeName: name,
		Data: map[string]interface{}{
			"score": score,
		},
	})
}

// Close shuts down the broadcaster and closes all subscriptions.
func (b *Broadcaster) Close() {
	close(b.done)
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Broadcaster) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}
