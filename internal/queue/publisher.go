package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/slot-reservation/internal/logger"
)

// DialTimeout bounds a single broker dial.
const DialTimeout = 2 * time.Second

// dial opens a broker connection whose TCP connect is bounded by timeout.
func dial(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

// Publisher sends reservation events to RabbitMQ.  The connection is opened
// lazily and reopened after a failure.  A dial is skipped once ctx is done
// and never waits longer than DialTimeout.
type Publisher struct {
	url         string
	log         logger.Logger
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, log logger.Logger) *Publisher {
	return &Publisher{url: url, log: log, dialTimeout: DialTimeout}
}

func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		timeout := p.dialTimeout
		if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
			timeout = time.Until(dl)
		}
		conn, err := dial(p.url, timeout)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	for _, q := range []string{ReservationConfirmedQueue, ReservationCancelledQueue} {
		// Durable so messages survive broker restarts.
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("rabbitmq declare %s: %w", q, err)
		}
	}
	p.ch = ch
	return ch, nil
}

// Publish marshals event and sends it as a persistent message to queue.
func (p *Publisher) Publish(ctx context.Context, queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel(ctx)
	if err != nil {
		p.log.Warn("publish %s: %v", queue, err)
		return err
	}
	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.log.Warn("publish %s: %v", queue, err)
		_ = ch.Close()
		p.ch = nil
		return err
	}
	return nil
}

func (p *Publisher) ReservationConfirmed(ctx context.Context, ev ReservationConfirmedEvent) error {
	return p.Publish(ctx, ReservationConfirmedQueue, ev)
}

func (p *Publisher) ReservationCancelled(ctx context.Context, ev ReservationCancelledEvent) error {
	return p.Publish(ctx, ReservationCancelledQueue, ev)
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
