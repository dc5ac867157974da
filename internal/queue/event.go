// Package queue defines message payloads exchanged over the message broker
// and the consumer of ticket notifications.
package queue

import (
	"time"

	"github.com/iliyamo/partystacker/internal/model"
)

// Queue names.  Routing keys equal queue names on the default exchange.
const (
	TicketIssuedQueue = "ticket.issued"
	RewardMintQueue   = "reward.mint"
)

// TicketIssuedEvent is published once a ticket has been created for an
// accepted payment.  It carries enough for consumers to log or notify
// without reading the database.
type TicketIssuedEvent struct {
	TicketID      string  `json:"ticket_id"`
	EventID       string  `json:"event_id"`
	EventTitle    string  `json:"event_title"`
	OwnerAddress  string  `json:"owner_address"`
	Tier          string  `json:"tier"`
	Price         float64 `json:"price"`
	TransactionID string  `json:"transaction_id"`
	IssuedAt      string  `json:"issued_at"`
}

// NewTicketIssuedEvent builds the payload for t.
func NewTicketIssuedEvent(t *model.Ticket, e *model.Event) TicketIssuedEvent {
	ev := TicketIssuedEvent{
		TicketID:      t.ID,
		EventID:       t.EventID,
		EventTitle:    e.Title,
		OwnerAddress:  t.OwnerAddress,
		Tier:          string(t.Tier),
		TransactionID: t.PurchaseTxHash,
		IssuedAt:      time.UnixMilli(t.CreatedAt).UTC().Format(time.RFC3339),
	}
	if tier, ok := e.Tiers.Get(t.Tier); ok {
		ev.Price = tier.Price
	}
	return ev
}

// RewardMintRequest asks the minting worker to mint an attendance reward
// for a checked-in ticket.  The worker reports the minted reference back
// via POST /api/tickets/:id/reward.
type RewardMintRequest struct {
	TicketID     string `json:"ticket_id"`
	EventID      string `json:"event_id"`
	EventTitle   string `json:"event_title"`
	EventDate    int64  `json:"event_date"`
	OwnerAddress string `json:"owner_address"`
	Tier         string `json:"tier"`
	NFTImageURL  string `json:"nft_image_url,omitempty"`
	RequestedAt  string `json:"requested_at"`
}

// NewRewardMintRequest builds the payload for t.
func NewRewardMintRequest(t *model.Ticket, e *model.Event, at time.Time) RewardMintRequest {
	return RewardMintRequest{
		TicketID:     t.ID,
		EventID:      e.ID,
		EventTitle:   e.Title,
		EventDate:    e.Date,
		OwnerAddress: t.OwnerAddress,
		Tier:         string(t.Tier),
		NFTImageURL:  e.NFTImageURL,
		RequestedAt:  at.UTC().Format(time.RFC3339),
	}
}
