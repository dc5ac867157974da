package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/partystacker/internal/model"
	"github.com/iliyamo/partystacker/internal/repository"
)

type txKey struct {
	eventID string
	txID    string
}

// TicketRepo stores tickets in memory and enforces the same
// (event, purchase transaction) uniqueness as the tickets table.
type TicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*model.Ticket
	byTx    map[txKey]string
}

// NewTicketRepo returns an empty TicketRepo.
func NewTicketRepo() *TicketRepo {
	return &TicketRepo{
		tickets: make(map[string]*model.Ticket),
		byTx:    make(map[txKey]string),
	}
}

func (r *TicketRepo) Create(_ context.Context, t *model.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := txKey{t.EventID, t.PurchaseTxHash}
	if _, ok := r.byTx[k]; ok {
		return repository.ErrDuplicateTransaction
	}
	cp := copyTicket(t)
	r.tickets[t.ID] = &cp
	r.byTx[k] = t.ID
	return nil
}

func (r *TicketRepo) GetByID(_ context.Context, id string) (*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	cp := copyTicket(t)
	return &cp, nil
}

func (r *TicketRepo) GetByTransaction(_ context.Context, eventID, txID string) (*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byTx[txKey{eventID, txID}]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	cp := copyTicket(r.tickets[id])
	return &cp, nil
}

func (r *TicketRepo) ListByOwner(_ context.Context, owner string) ([]model.Ticket, error) {
	return r.filter(func(t *model.Ticket) bool { return t.OwnerAddress == owner }), nil
}

func (r *TicketRepo) ListByEvent(_ context.Context, eventID string) ([]model.Ticket, error) {
	return r.filter(func(t *model.Ticket) bool { return t.EventID == eventID }), nil
}

func (r *TicketRepo) MarkCheckedIn(_ context.Context, id string, at int64) (*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	if t.CheckedIn {
		cp := copyTicket(t)
		return &cp, repository.ErrAlreadyCheckedIn
	}
	t.CheckedIn = true
	t.CheckinTime = &at
	cp := copyTicket(t)
	return &cp, nil
}

func (r *TicketRepo) RecordReward(_ context.Context, id, rewardRef string) (*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	t.RewardMinted = true
	t.RewardTokenID = rewardRef
	cp := copyTicket(t)
	return &cp, nil
}

// Count returns the number of stored tickets.
func (r *TicketRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickets)
}

func (r *TicketRepo) filter(keep func(*model.Ticket) bool) []model.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Ticket{}
	for _, t := range r.tickets {
		if keep(t) {
			out = append(out, copyTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func copyTicket(t *model.Ticket) model.Ticket {
	cp := *t
	if t.CheckinTime != nil {
		at := *t.CheckinTime
		cp.CheckinTime = &at
	}
	return cp
}
