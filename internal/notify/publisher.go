package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coworking/internal/events"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// Publisher forwards booking events to a durable RabbitMQ queue, where the
// confirmation mailer picks them up.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *zerolog.Logger
	mu      sync.Mutex
}

// Dial connects to url and declares queue.
func Dial(url, queue string, logger *zerolog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Publisher{conn: conn, channel: channel, queue: queue, logger: logger}, nil
}

// Attach subscribes the publisher to booking_created events on bus.
func (p *Publisher) Attach(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, p.HandleBookingCreated)
}

// HandleBookingCreated publishes the event payload as is. A nil publisher is a no-op.
func (p *Publisher) HandleBookingCreated(event *events.Event) error {
	if p == nil || p.channel == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, message(event)); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	p.logger.Debug().Str("queue", p.queue).Str("event", event.Type).Msg("event forwarded")
	return nil
}

func message(event *events.Event) amqp.Publishing {
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ts.UTC(),
		Type:         event.Type,
		Body:         event.Payload,
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
