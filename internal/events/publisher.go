// Package events publishes a message to RabbitMQ after each committed lead
// import so downstream CRM consumers can react to new data.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/JonMunkholm/leadimport/internal/config"
	"github.com/JonMunkholm/leadimport/internal/core"
)

// MessageType is the AMQP type header of import events.
const MessageType = "leads.imported"

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends import events to a topic exchange.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	key      string
}

// Notifier is what the service layer talks to: a Publisher or a no-op.
type Notifier interface {
	core.ImportNotifier
	Close() error
}

// New returns a Publisher for cfg, or a no-op notifier when no broker URL
// is configured.
func New(cfg config.EventsConfig) (Notifier, error) {
	if cfg.AMQPURL == "" {
		return Nop{}, nil
	}
	return Dial(cfg)
}

// Dial connects to the broker and declares the exchange.
func Dial(cfg config.EventsConfig) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return &Publisher{conn: conn, ch: ch, exchange: cfg.Exchange, key: cfg.RoutingKey}, nil
}

// ImportCommitted publishes ev as a persistent JSON message.
func (p *Publisher) ImportCommitted(ctx context.Context, ev core.ImportEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode import event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return amqp.ErrClosed
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, p.key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.BatchID,
		Type:         MessageType,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", MessageType, p.exchange, err)
	}
	return nil
}

// Check reports whether the broker connection is still open.
func (p *Publisher) Check(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return amqp.ErrClosed
	}
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) ImportCommitted(context.Context, core.ImportEvent) error { return nil }
func (Nop) Close() error                                           { return nil }
