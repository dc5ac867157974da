// Package memory provides in-process implementations of the event and
// ticket repositories.  They return the same sentinel errors as the MySQL
// repositories and are used by tests and by the server when STORE_DRIVER
// is "memory".
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/partystacker/internal/model"
	"github.com/iliyamo/partystacker/internal/repository"
)

// EventRepo stores events in a map guarded by a mutex.  Callers always
// receive copies so they cannot mutate stored state.
type EventRepo struct {
	mu     sync.Mutex
	events map[string]*model.Event
}

// NewEventRepo returns an empty EventRepo.
func NewEventRepo() *EventRepo {
	return &EventRepo{events: make(map[string]*model.Event)}
}

func (r *EventRepo) Create(_ context.Context, e *model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[e.ID]; ok {
		return repository.ErrEventExists
	}
	cp := copyEvent(e)
	r.events[e.ID] = &cp
	return nil
}

func (r *EventRepo) GetByID(_ context.Context, id string) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := copyEvent(e)
	return &cp, nil
}

// List returns all events, newest first.
func (r *EventRepo) List(_ context.Context) ([]model.Event, error) {
	return r.filter(func(*model.Event) bool { return true }), nil
}

// ListByOrganizer returns the events of one organizer, newest first.
func (r *EventRepo) ListByOrganizer(_ context.Context, organizer string) ([]model.Event, error) {
	return r.filter(func(e *model.Event) bool { return e.OrganizerAddress == organizer }), nil
}

func (r *EventRepo) Update(_ context.Context, id string, p model.EventPatch) (*model.Event, error) {
	if p.Empty() {
		return nil, repository.ErrNoChange
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	p.Apply(e)
	cp := copyEvent(e)
	return &cp, nil
}

// IncrementSold adds one to the tier's sold counter while it is below
// capacity.  The check and the write happen under the same lock.
func (r *EventRepo) IncrementSold(_ context.Context, eventID string, tier model.TierName) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.tier(eventID, tier)
	if err != nil {
		return 0, err
	}
	if t.Sold >= t.Available {
		return t.Sold, repository.ErrSoldOut
	}
	t.Sold++
	return t.Sold, nil
}

func (r *EventRepo) DecrementSold(_ context.Context, eventID string, tier model.TierName) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.tier(eventID, tier)
	if err != nil {
		return err
	}
	if t.Sold > 0 {
		t.Sold--
	}
	return nil
}

func (r *EventRepo) tier(eventID string, name model.TierName) (*model.Tier, error) {
	e, ok := r.events[eventID]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	t, ok := e.Tiers.Get(name)
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return t, nil
}

func (r *EventRepo) filter(keep func(*model.Event) bool) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Event{}
	for _, e := range r.events {
		if keep(e) {
			out = append(out, copyEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func copyEvent(e *model.Event) model.Event {
	cp := *e
	if e.OnChainID != nil {
		id := *e.OnChainID
		cp.OnChainID = &id
	}
	return cp
}
