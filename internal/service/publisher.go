// Package service publishes domain events to RabbitMQ.  Publishing is best
// effort: errors are logged, counted and returned, and callers decide
// whether to ignore them.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/partystacker/internal/metrics"
	"github.com/iliyamo/partystacker/internal/model"
	"github.com/iliyamo/partystacker/internal/queue"
)

// ErrPublisherDisabled is returned when no broker URL is configured.
var ErrPublisherDisabled = errors.New("publisher disabled: no broker url")

// Publisher opens a short lived connection per message.  Message volume is
// one per ticket or check-in, so no connection is kept open.
type Publisher struct {
	url         string
	dialTimeout time.Duration
	now         func() time.Time
}

// NewPublisher returns a Publisher for url.  An empty url disables it.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, dialTimeout: 2 * time.Second, now: time.Now}
}

// PublishTicketIssued sends a ticket.issued message for t.
func (p *Publisher) PublishTicketIssued(ctx context.Context, t *model.Ticket, e *model.Event) error {
	return p.publish(ctx, queue.TicketIssuedQueue, queue.NewTicketIssuedEvent(t, e))
}

// RequestMint sends a reward.mint message for a checked-in ticket.
func (p *Publisher) RequestMint(ctx context.Context, t *model.Ticket, e *model.Event) error {
	return p.publish(ctx, queue.RewardMintQueue, queue.NewRewardMintRequest(t, e, p.now()))
}

func (p *Publisher) publish(ctx context.Context, queueName string, v any) (err error) {
	if p.url == "" {
		return ErrPublisherDisabled
	}
	defer func() {
		if err != nil {
			metrics.PublishFailed(queueName)
			slog.WarnContext(ctx, "rabbitmq publish failed", "queue", queueName, "error", err)
		}
	}()

	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	})
}
