package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated    = "booking_created"
	EventSeatStatusChanged = "seat_status_changed"
	EventIntentResumed     = "intent_resumed"
)

// BookingCreatedPayload is published after the API accepted a booking.
type BookingCreatedPayload struct {
	ChatID    int64     `json:"chat_id,omitempty"`
	SeatID    int64     `json:"seat_id"`
	SeatIndex int       `json:"seat_index"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// SeatStatusChangedPayload describes an effective status transition seen between two refreshes.
type SeatStatusChangedPayload struct {
	SeatID      int64  `json:"seat_id"`
	CoworkingID int64  `json:"coworking_id"`
	SeatIndex   int    `json:"seat_index"`
	From        string `json:"from"`
	To          string `json:"to"`
}

// IntentResumedPayload is published when a click remembered before login turns into a booking form.
type IntentResumedPayload struct {
	ChatID int64 `json:"chat_id"`
	SeatID int64 `json:"seat_id"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into out.
func (e *Event) Decode(out interface{}) error {
	return json.Unmarshal(e.Payload, out)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	onError     func(event *Event, err error)
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError sets a callback for handler failures. Without it failures are dropped.
func (b *EventBus) OnError(fn func(event *Event, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
