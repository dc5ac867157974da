package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartTicketConsumer connects to RabbitMQ, declares the ticket.issued
// queue (durable) and appends each message as one line to
// <dir>/tickets.log.  It reconnects with backoff and returns only when ctx
// is cancelled.  Undecodable messages are rejected without requeue.
func StartTicketConsumer(ctx context.Context, url, dir string) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			slog.Warn("ticket consumer: dial broker failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, dir)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("ticket consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		slog.Warn("ticket consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(TicketIssuedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, TicketIssuedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(dir, d.Body); err != nil {
			slog.Error("ticket consumer: drop message", "error", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(dir string, body []byte) error {
	var ev TicketIssuedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.TicketID == "" {
		return errors.New("missing ticket_id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "tickets.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Ticket issued | ticket_id=%s | event_id=%s | event=%q | owner=%s | tier=%s | price=%g | tx=%s\n",
		ev.IssuedAt, ev.TicketID, ev.EventID, ev.EventTitle, ev.OwnerAddress, ev.Tier, ev.Price, ev.TransactionID)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
