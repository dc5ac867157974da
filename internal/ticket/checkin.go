package ticket

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/partystacker/internal/metrics"
	"github.com/iliyamo/partystacker/internal/model"
	"github.com/iliyamo/partystacker/internal/repository"
)

// ErrNotOrganizer is returned when the caller does not organise the event
// the ticket belongs to.
var ErrNotOrganizer = errors.New("only the event organizer can check in tickets")

// CheckinStore holds the ticket mutations used after purchase.
type CheckinStore interface {
	GetByID(ctx context.Context, id string) (*model.Ticket, error)
	MarkCheckedIn(ctx context.Context, id string, at int64) (*model.Ticket, error)
	RecordReward(ctx context.Context, id, rewardRef string) (*model.Ticket, error)
}

// EventGetter loads events.
type EventGetter interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// RewardMinter asks an external worker to mint an attendance reward.  The
// worker reports the minted reference back through RecordReward.
type RewardMinter interface {
	RequestMint(ctx context.Context, t *model.Ticket, e *model.Event) error
}

// CheckinResult is the outcome of a successful check-in.
type CheckinResult struct {
	Ticket          *model.Ticket
	Event           *model.Event
	RewardRequested bool
}

// Checkin runs the door workflow.
type Checkin struct {
	tickets CheckinStore
	events  EventGetter
	minter  RewardMinter
	now     func() time.Time
	log     *slog.Logger
}

// NewCheckin returns a Checkin.  minter may be nil.
func NewCheckin(tickets CheckinStore, events EventGetter, minter RewardMinter, log *slog.Logger) *Checkin {
	if log == nil {
		log = slog.Default()
	}
	return &Checkin{tickets: tickets, events: events, minter: minter, now: time.Now, log: log}
}

// CheckIn marks the ticket used.  organizer must match the event's
// organizer address.  When the ticket was already used the returned result
// carries it, along with repository.ErrAlreadyCheckedIn.  A failed reward
// request is logged and does not fail the check-in.
func (c *Checkin) CheckIn(ctx context.Context, ticketID, organizer string) (*CheckinResult, error) {
	t, e, err := c.load(ctx, ticketID, organizer)
	if err != nil {
		metrics.Checkin("rejected")
		return nil, err
	}
	if t.CheckedIn {
		metrics.Checkin("duplicate")
		return &CheckinResult{Ticket: t, Event: e}, repository.ErrAlreadyCheckedIn
	}
	t, err = c.tickets.MarkCheckedIn(ctx, ticketID, c.now().UnixMilli())
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyCheckedIn) {
			metrics.Checkin("duplicate")
			return &CheckinResult{Ticket: t, Event: e}, err
		}
		return nil, err
	}
	metrics.Checkin("ok")

	res := &CheckinResult{Ticket: t, Event: e}
	if c.minter != nil {
		if err := c.minter.RequestMint(ctx, t, e); err != nil {
			c.log.ErrorContext(ctx, "reward mint request failed", "ticket", t.ID, "error", err)
		} else {
			res.RewardRequested = true
		}
	}
	return res, nil
}

// RecordReward stores the minted reward reference for a ticket.
func (c *Checkin) RecordReward(ctx context.Context, ticketID, organizer, rewardRef string) (*model.Ticket, error) {
	if _, _, err := c.load(ctx, ticketID, organizer); err != nil {
		return nil, err
	}
	return c.tickets.RecordReward(ctx, ticketID, rewardRef)
}

func (c *Checkin) load(ctx context.Context, ticketID, organizer string) (*model.Ticket, *model.Event, error) {
	t, err := c.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	e, err := c.events.GetByID(ctx, t.EventID)
	if err != nil {
		return nil, nil, err
	}
	if e.OrganizerAddress != organizer {
		return nil, nil, ErrNotOrganizer
	}
	return t, e, nil
}
