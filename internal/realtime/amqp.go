package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/venue-checkin/internal/queue"
)

// AMQPEmitter publishes refresh events to a durable topic exchange with
// the room as routing key.  The connection is opened on first use and
// dropped after any publish error so the next emit redials.
type AMQPEmitter struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPEmitter returns an emitter for the broker at url.
func NewAMQPEmitter(url, exchange string) *AMQPEmitter {
	return &AMQPEmitter{url: url, exchange: exchange}
}

func (e *AMQPEmitter) Emit(ctx context.Context, ev queue.RefreshEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("amqp: marshal event: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.connectLocked(); err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient, // a missed refresh is harmless
		MessageId:    ev.ID,
		Type:         ev.Event,
		Timestamp:    ev.EmittedAt,
		Body:         body,
	}
	if err := e.ch.PublishWithContext(ctx,
		e.exchange, // exchange
		ev.Room,    // routing key
		false,      // mandatory
		false,      // immediate
		pub,
	); err != nil {
		e.resetLocked()
		return fmt.Errorf("amqp: publish: %w", err)
	}
	return nil
}

func (e *AMQPEmitter) connectLocked() error {
	if e.ch != nil && !e.ch.IsClosed() {
		return nil
	}
	e.resetLocked()
	conn, err := amqp.Dial(e.url)
	if err != nil {
		return fmt.Errorf("amqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp: channel open: %w", err)
	}
	// Idempotent; durable so bindings survive broker restarts.
	if err := ch.ExchangeDeclare(
		e.exchange,         // name
		amqp.ExchangeTopic, // kind
		true,               // durable
		false,              // autoDelete
		false,              // internal
		false,              // noWait
		nil,                // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("amqp: exchange declare: %w", err)
	}
	e.conn, e.ch = conn, ch
	return nil
}

func (e *AMQPEmitter) resetLocked() {
	if e.ch != nil {
		_ = e.ch.Close()
	}
	if e.conn != nil {
		_ = e.conn.Close()
	}
	e.conn, e.ch = nil, nil
}

func (e *AMQPEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
	return nil
}
