package ticket

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/partystacker/internal/metrics"
	"github.com/iliyamo/partystacker/internal/model"
	"github.com/iliyamo/partystacker/internal/repository"
)

// Store persists tickets.  Create must reject a second ticket for the same
// (event, transaction) with repository.ErrDuplicateTransaction.
type Store interface {
	GetByTransaction(ctx context.Context, eventID, txID string) (*model.Ticket, error)
	Create(ctx context.Context, t *model.Ticket) error
}

// IssueRequest names the purchase a ticket is issued for.
type IssueRequest struct {
	EventID       string
	Buyer         string
	Tier          model.TierName
	TransactionID string
}

// Issuer creates tickets, at most one per (event, transaction).
type Issuer struct {
	store  Store
	signer *Signer
	now    func() time.Time
}

// NewIssuer returns an Issuer writing to store and signing with signer.
func NewIssuer(store Store, signer *Signer) *Issuer {
	return &Issuer{store: store, signer: signer, now: time.Now}
}

// NewTicketID returns a fresh, time ordered ticket id.
func NewTicketID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return "tkt-" + id.String(), nil
}

// Existing returns the ticket already issued for txID, or nil when there
// is none.
func (i *Issuer) Existing(ctx context.Context, eventID, txID string) (*model.Ticket, error) {
	t, err := i.store.GetByTransaction(ctx, eventID, txID)
	if errors.Is(err, repository.ErrTicketNotFound) {
		return nil, nil
	}
	return t, err
}

// Issue creates the ticket for req.  If a ticket for the same transaction
// exists, either before the call or because a concurrent request won the
// insert, that ticket is returned with created == false.
func (i *Issuer) Issue(ctx context.Context, req IssueRequest) (t *model.Ticket, created bool, err error) {
	if existing, err := i.Existing(ctx, req.EventID, req.TransactionID); err != nil || existing != nil {
		return existing, false, err
	}

	id, err := NewTicketID()
	if err != nil {
		return nil, false, err
	}
	now := i.now()
	blob, _, err := i.signer.Sign(id, req.EventID, req.Buyer, req.Tier, now)
	if err != nil {
		return nil, false, err
	}
	t = &model.Ticket{
		ID:             id,
		EventID:        req.EventID,
		OwnerAddress:   req.Buyer,
		Tier:           req.Tier,
		PurchaseTxHash: req.TransactionID,
		QRCodeData:     blob,
		CreatedAt:      now.UnixMilli(),
	}
	if err := i.store.Create(ctx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicateTransaction) {
			existing, gerr := i.store.GetByTransaction(ctx, req.EventID, req.TransactionID)
			if gerr != nil {
				return nil, false, gerr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	metrics.TicketIssued(string(req.Tier))
	return t, true, nil
}
