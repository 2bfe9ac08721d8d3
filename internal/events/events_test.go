package events

import (
	"errors"
	"testing"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	err := bus.PublishJSON(EventBookingCreated, BookingCreatedPayload{SeatID: 10, Email: "a@b.com"})
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventBookingCreated {
		t.Errorf("expected type %s, got %s", EventBookingCreated, received.Type)
	}
	if received.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}

	var decoded BookingCreatedPayload
	if err := received.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.SeatID != 10 || decoded.Email != "a@b.com" {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return nil })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: "event"})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
}

func TestEventBusHandlerError(t *testing.T) {
	bus := NewEventBus()
	var reported error
	bus.OnError(func(_ *Event, err error) { reported = err })

	var secondCalled bool
	bus.Subscribe("event", func(_ *Event) error { return errors.New("boom") })
	bus.Subscribe("event", func(_ *Event) error { secondCalled = true; return nil })

	bus.Publish(&Event{Type: "event"})

	if reported == nil || reported.Error() != "boom" {
		t.Errorf("expected handler error to be reported, got %v", reported)
	}
	if !secondCalled {
		t.Errorf("a failing handler must not stop the others")
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	bus.Publish(&Event{Type: "unknown"})
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}

	var nilBus *EventBus
	if err := nilBus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("nil bus should be a no-op, got %v", err)
	}
}
