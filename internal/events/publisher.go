// Package events publishes session lifecycle events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends events to a topic exchange, routed by event type.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher dials url and declares a durable topic exchange.
func NewPublisher(url, exchange string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Publisher{conn: conn, channel: ch, exchange: exchange, logger: logger}, nil
}

// Publish encodes event as JSON and publishes it with the event type as
// routing key.
func (p *Publisher) Publish(ctx context.Context, event entities.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.Type, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.Publish(
		p.exchange,
		string(event.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.logger.Debug("event published",
		zap.String("event", string(event.Type)),
		zap.String("session_id", event.SessionID),
	)
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// LogPublisher writes events to the log. It stands in when no broker is
// configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event entities.Event) error {
	p.logger.Info("event",
		zap.String("event", string(event.Type)),
		zap.String("session_id", event.SessionID),
		zap.String("user_id", event.UserID),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}
