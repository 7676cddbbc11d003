package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends WorkflowEvents to a durable RabbitMQ queue as persistent
// JSON messages. It keeps one connection and channel open and redials on
// the next Publish after either is lost. Dialing is bounded by dialTimeout.
// Errors are returned, not logged; callers decide whether they matter.
type Publisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
	log         *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url, queueName string, dialTimeout time.Duration, log *zap.Logger) *Publisher {
	if dialTimeout <= 0 {
		dialTimeout = 2 * time.Second
	}
	return &Publisher{url: url, queue: queueName, dialTimeout: dialTimeout, log: log.Named("publisher")}
}

func (p *Publisher) Publish(ctx context.Context, ev WorkflowEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Entity + "." + ev.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.reset()
		return err
	}
	return nil
}

// channel returns the open channel, dialing and declaring the queue first
// when there is none. p.mu must be held.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial:      amqp.DefaultDial(p.dialTimeout),
		Heartbeat: 10 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := declare(ch, p.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	p.log.Info("connected", zap.String("queue", p.queue))
	return ch, nil
}

// reset drops the current connection. p.mu must be held.
func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close shuts the connection down. Publish may still be called afterwards
// and will redial.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.conn != nil {
		err = p.conn.Close()
		if errors.Is(err, amqp.ErrClosed) {
			err = nil
		}
	}
	p.conn, p.ch = nil, nil
	return err
}

// declare makes sure the durable queue exists. It is idempotent.
func declare(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(name, true, false, false, false, nil)
}

// NopPublisher drops every event. It is used when the broker is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, WorkflowEvent) error { return nil }
