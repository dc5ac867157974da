package handler

import (
	"context"

	"github.com/iliyamo/partystacker/internal/model"
)

// EventStore is the event persistence used by the handlers.
type EventStore interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Create(ctx context.Context, e *model.Event) error
	List(ctx context.Context) ([]model.Event, error)
	ListByOrganizer(ctx context.Context, organizer string) ([]model.Event, error)
	Update(ctx context.Context, id string, p model.EventPatch) (*model.Event, error)
}

// EventResolver resolves local and on-chain event ids.
type EventResolver interface {
	Resolve(ctx context.Context, id string) (*model.Event, error)
}

// TicketReader is the ticket query side.
type TicketReader interface {
	GetByID(ctx context.Context, id string) (*model.Ticket, error)
	ListByOwner(ctx context.Context, owner string) ([]model.Ticket, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Ticket, error)
}

// Notifier publishes ticket notifications.
type Notifier interface {
	PublishTicketIssued(ctx context.Context, t *model.Ticket, e *model.Event) error
}

// CacheInvalidator drops cached event reads after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}
