package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPPublisher publishes events as persistent JSON messages to a durable topic exchange.
// The connection is opened lazily and re-opened after the broker drops it.
type AMQPPublisher struct {
	url      string
	exchange string
	logger   *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher returns a publisher for the given broker URL and exchange.
func NewAMQPPublisher(url, exchange string, logger *zap.Logger) *AMQPPublisher {
	if exchange == "" {
		exchange = "parking.session.events"
	}
	return &AMQPPublisher{url: url, exchange: exchange, logger: logger}
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("events: dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("events: declare exchange: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// Publish sends ev with its type as routing key.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.logger.Warn("event publish skipped", zap.String("type", string(ev.Type)), zap.Error(err))
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    fmt.Sprintf("%s:%d:%d", ev.Type, ev.SessionID, ev.OccurredAt.UnixNano()),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, msg); err != nil {
		p.closeLocked()
		p.logger.Warn("event publish failed", zap.String("type", string(ev.Type)), zap.Error(err))
		return fmt.Errorf("events: publish: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *AMQPPublisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
