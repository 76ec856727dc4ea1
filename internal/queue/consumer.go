package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/slot-reservation/internal/logger"
)

// Consumer listens to both reservation queues and appends one line per
// event to <dir>/booking.log.
type Consumer struct {
	url string
	dir string
	log logger.Logger
}

func NewConsumer(url, dir string, log logger.Logger) *Consumer {
	return &Consumer{url: url, dir: dir, log: log}
}

// Run keeps a consuming connection alive with exponential backoff until
// ctx is cancelled.  Messages that cannot be handled are rejected without
// requeue so a poison message does not loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := dial(c.url, DialTimeout)
		if err != nil {
			c.log.Warn("booking-consumer: dial failed: %v; retrying in %s", err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("booking-consumer: consume loop ended: %v; reconnecting", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("booking-consumer: set QoS failed: %v", err)
	}

	confirmed, err := c.subscribe(ch, ReservationConfirmedQueue)
	if err != nil {
		return err
	}
	cancelled, err := c.subscribe(ch, ReservationCancelledQueue)
	if err != nil {
		return err
	}

	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-confirmed:
		case d, ok = <-cancelled:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.handle(d.RoutingKey, d.Body); err != nil {
			c.log.Error("booking-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

func (c *Consumer) subscribe(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}
	return msgs, nil
}

func (c *Consumer) handle(queue string, body []byte) error {
	line, err := FormatLine(queue, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	_, err = io.WriteString(f, line)
	return err
}

// FormatLine renders one event as a single booking.log line.
func FormatLine(queue string, body []byte) (string, error) {
	switch queue {
	case ReservationConfirmedQueue:
		var ev ReservationConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		parts := make([]string, 0, len(ev.Slots))
		for _, s := range ev.Slots {
			parts = append(parts, fmt.Sprintf("#%d %s @ %s (%s)", s.ReservationID, s.VenueName, s.StartsAt, s.InvoiceNumber))
		}
		return fmt.Sprintf("[%s] Reservation confirmed | user_id=%d | intent=%s | total=%d cents | slots=[%s]\n",
			ev.ConfirmedAt, ev.UserID, ev.PaymentIntentID, ev.TotalAmountCents, strings.Join(parts, ", ")), nil
	case ReservationCancelledQueue:
		var ev ReservationCancelledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Reservation cancelled | reservation_id=%d | user_id=%d | slot_id=%d\n",
			ev.CancelledAt, ev.ReservationID, ev.UserID, ev.SlotID), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}
