package core

import "sync"

// EventType defines the type of event being published.
type EventType string

const (
	// SessionStateChangedEvent fires when the control session to the
	// Webcandy server connects or disconnects. Payload: SessionState.
	SessionStateChangedEvent EventType = "SessionStateChanged"
	// PatternChangedEvent fires when a new lighting configuration takes
	// over the strip. Payload: PatternState.
	PatternChangedEvent EventType = "PatternChanged"
)

// SessionState is the payload of SessionStateChangedEvent.
type SessionState struct {
	Connected bool
}

// PatternState is the payload of PatternChangedEvent.
type PatternState struct {
	Running string
	Strobe  bool
}

// Event is the envelope for all client events.
type Event struct {
	Type    EventType
	Payload interface{}
}

// Subscriber is a channel that receives events.
type Subscriber chan Event

// EventBus handles pub/sub messaging between the agent, the controller and
// the MQTT mirror.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
}

// NewEventBus creates a new EventBus.
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
	}
}

// Subscribe returns a channel that receives events of the given types.
func (eb *EventBus) Subscribe(eventTypes ...EventType) Subscriber {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(Subscriber, 100) // Buffered channel so publishers don't block
	for _, t := range eventTypes {
		eb.subscribers[t] = append(eb.subscribers[t], ch)
	}

	return ch
}

// Publish distributes an event to all active subscribers for its type.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, sub := range eb.subscribers[event.Type] {
		select {
		case sub <- event:
		default:
			// If the subscriber channel is full, we drop the event to prevent blocking the publishers
		}
	}
}
