// Package ledger keeps per-tier capacity bookkeeping for events.
package ledger

import (
	"context"
	"errors"

	"github.com/iliyamo/partystacker/internal/model"
	"github.com/iliyamo/partystacker/internal/repository"
)

var (
	// ErrInvalidTier is returned for a tier name outside general/vip/backstage.
	ErrInvalidTier = errors.New("invalid tier")
	// ErrSoldOut is returned when the tier has no remaining capacity.
	ErrSoldOut = errors.New("tier sold out")
)

// Counter performs the conditional sold-counter updates.  The store is
// responsible for atomicity; the ledger holds no locks of its own.
type Counter interface {
	IncrementSold(ctx context.Context, eventID string, tier model.TierName) (int, error)
	DecrementSold(ctx context.Context, eventID string, tier model.TierName) error
}

// Ledger wraps a Counter with tier validation and error mapping.
type Ledger struct {
	counter Counter
}

// New returns a Ledger over counter.
func New(counter Counter) *Ledger {
	return &Ledger{counter: counter}
}

// CheckSellable validates tier against the event snapshot.  It returns
// ErrInvalidTier for an unknown tier and ErrSoldOut when sold has reached
// available.  The check is advisory; Increment is authoritative.
func (l *Ledger) CheckSellable(e *model.Event, tier string) (model.TierName, model.Tier, error) {
	name, ok := model.ParseTierName(tier)
	if !ok {
		return "", model.Tier{}, ErrInvalidTier
	}
	t, _ := e.Tiers.Get(name)
	if t.SoldOut() {
		return name, *t, ErrSoldOut
	}
	return name, *t, nil
}

// Increment reserves one unit of the tier and returns the new sold count.
func (l *Ledger) Increment(ctx context.Context, eventID string, tier model.TierName) (int, error) {
	sold, err := l.counter.IncrementSold(ctx, eventID, tier)
	if errors.Is(err, repository.ErrSoldOut) {
		return sold, ErrSoldOut
	}
	return sold, err
}

// Release returns a unit reserved by Increment that did not result in a
// ticket.
func (l *Ledger) Release(ctx context.Context, eventID string, tier model.TierName) error {
	return l.counter.DecrementSold(ctx, eventID, tier)
}
