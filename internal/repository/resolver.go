package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/iliyamo/partystacker/internal/model"
)

// ChainEventPrefix marks event ids that refer to an on-chain event record
// rather than a locally created one, e.g. "chain-12".
const ChainEventPrefix = "chain-"

// EventMirror reads event definitions from the on-chain registry.  It
// returns ErrEventNotFound when the registry has no such id.
type EventMirror interface {
	FetchEvent(ctx context.Context, onChainID uint64) (*model.Event, error)
}

// EventStore is the subset of event persistence the resolver needs.  Both
// EventRepo and memory.EventRepo satisfy it.
type EventStore interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Create(ctx context.Context, e *model.Event) error
}

// EventResolver looks events up by id.  Plain ids are read from the store.
// Chain ids are read from the store first and, on a miss, fetched through
// the mirror and saved locally so that capacity bookkeeping and tickets
// have a row to reference.
type EventResolver struct {
	store  EventStore
	mirror EventMirror
}

// NewEventResolver builds a resolver.  mirror may be nil, in which case
// chain ids that are not already stored resolve to ErrEventNotFound.
func NewEventResolver(store EventStore, mirror EventMirror) *EventResolver {
	return &EventResolver{store: store, mirror: mirror}
}

// Resolve returns the event identified by id.
func (r *EventResolver) Resolve(ctx context.Context, id string) (*model.Event, error) {
	e, err := r.store.GetByID(ctx, id)
	if err == nil || !errors.Is(err, ErrEventNotFound) {
		return e, err
	}
	if !strings.HasPrefix(id, ChainEventPrefix) || r.mirror == nil {
		return nil, ErrEventNotFound
	}
	onChainID, perr := strconv.ParseUint(strings.TrimPrefix(id, ChainEventPrefix), 10, 64)
	if perr != nil {
		return nil, ErrEventNotFound
	}
	e, err = r.mirror.FetchEvent(ctx, onChainID)
	if err != nil {
		return nil, err
	}
	e.ID = id
	e.OnChainID = &onChainID
	if e.Status == "" {
		e.Status = model.EventUpcoming
	}
	if err := r.store.Create(ctx, e); err != nil {
		if errors.Is(err, ErrEventExists) {
			// another request mirrored it first
			return r.store.GetByID(ctx, id)
		}
		return nil, err
	}
	return e, nil
}
