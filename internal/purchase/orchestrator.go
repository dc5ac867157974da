// Package purchase implements the two round trip ticket purchase: a
// request without proof gets a payment challenge, a request with proof is
// verified and settled into a ticket.  Nothing is kept between calls.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/partystacker/internal/ledger"
	"github.com/iliyamo/partystacker/internal/metrics"
	"github.com/iliyamo/partystacker/internal/model"
	"github.com/iliyamo/partystacker/internal/payment"
	"github.com/iliyamo/partystacker/internal/repository"
	"github.com/iliyamo/partystacker/internal/ticket"
	"github.com/iliyamo/partystacker/internal/x402"
)

// State is the position of a purchase in the handshake.
type State string

const (
	AwaitingChallenge State = "awaiting_challenge"
	ChallengeIssued   State = "challenge_issued"
	ProofSubmitted    State = "proof_submitted"
	Settled           State = "settled"
	Rejected          State = "rejected"
)

// Request is one call to the purchase endpoint.  PaymentSignature is the
// raw payment-signature header, empty on the first round trip.
type Request struct {
	EventID          string
	Tier             string
	BuyerAddress     string
	PaymentSignature string
}

// Outcome is the result of a call that did not fail.
//
// For ChallengeIssued, Challenge and ChallengeHeader are set.  For Settled,
// Ticket, Settlement and SettlementHeader are set; Created is false when an
// earlier ticket for the same transaction was replayed.
type Outcome struct {
	State            State
	Event            *model.Event
	Tier             model.TierName
	Price            float64
	Challenge        *x402.PaymentRequired
	ChallengeHeader  string
	Ticket           *model.Ticket
	Created          bool
	Decision         payment.Decision
	Settlement       *x402.SettlementResponse
	SettlementHeader string
}

// EventResolver loads events, including mirrored on-chain ones.
type EventResolver interface {
	Resolve(ctx context.Context, id string) (*model.Event, error)
}

// Verifier classifies a claimed transaction.
type Verifier interface {
	Verify(ctx context.Context, txID string) payment.Decision
}

// Config holds the challenge parameters that do not come from the event.
type Config struct {
	Network           string
	Asset             string
	MaxTimeoutSeconds int
}

// Orchestrator ties event lookup, capacity, verification and issuance
// together.
type Orchestrator struct {
	events   EventResolver
	ledger   *ledger.Ledger
	verifier Verifier
	issuer   *ticket.Issuer
	cfg      Config
	log      *slog.Logger
}

// New returns an Orchestrator.
func New(events EventResolver, l *ledger.Ledger, v Verifier, issuer *ticket.Issuer, cfg Config, log *slog.Logger) *Orchestrator {
	if cfg.Asset == "" {
		cfg.Asset = x402.DefaultAsset
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{events: events, ledger: l, verifier: v, issuer: issuer, cfg: cfg, log: log}
}

// Handle runs one round trip.  Failures are returned as *Error.  Failed or
// rejected calls never create tickets and leave sold counters unchanged.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Outcome, error) {
	out, err := o.handle(ctx, req)
	if err != nil {
		metrics.Purchase(string(Rejected), KindName(err))
		return nil, err
	}
	metrics.Purchase(string(out.State), "")
	return out, nil
}

func (o *Orchestrator) handle(ctx context.Context, req Request) (*Outcome, error) {
	eventID := strings.TrimSpace(req.EventID)
	tierRaw := strings.TrimSpace(req.Tier)
	buyer := strings.TrimSpace(req.BuyerAddress)
	if eventID == "" || tierRaw == "" || buyer == "" {
		return nil, fail(ErrValidation, "Missing required fields: eventId, tier, buyerAddress")
	}

	e, err := o.events.Resolve(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, fail(ErrEventNotFound, "Event not found")
		}
		return nil, internal(err)
	}

	tierName, tier, sellErr := o.ledger.CheckSellable(e, tierRaw)
	if errors.Is(sellErr, ledger.ErrInvalidTier) {
		return nil, fail(ErrInvalidTier, "Invalid tier")
	}
	out := &Outcome{State: AwaitingChallenge, Event: e, Tier: tierName, Price: tier.Price}

	if req.PaymentSignature == "" {
		if errors.Is(sellErr, ledger.ErrSoldOut) {
			return nil, fail(ErrTierSoldOut, "Tier sold out")
		}
		challenge, header, err := o.challenge(e, tierName, tier)
		if err != nil {
			return nil, internal(err)
		}
		out.State = ChallengeIssued
		out.Challenge = challenge
		out.ChallengeHeader = header
		return out, nil
	}

	out.State = ProofSubmitted
	proof, err := x402.DecodeProof(req.PaymentSignature)
	switch {
	case errors.Is(err, x402.ErrUnsupportedVersion):
		return nil, fail(ErrUnsupportedVersion, "Only x402 V2 is supported")
	case errors.Is(err, x402.ErrMissingTransaction):
		return nil, fail(ErrMissingTransaction, "Missing transaction in payment payload")
	case err != nil:
		return nil, fail(ErrMalformedProof, "Invalid payment-signature header: failed to decode")
	}
	txID := strings.TrimSpace(proof.Payload.Transaction)

	// A retried proof returns the ticket it already paid for.
	existing, err := o.issuer.Existing(ctx, e.ID, txID)
	if err != nil {
		return nil, internal(err)
	}
	if existing != nil {
		return o.replay(out, existing, buyer, txID, proof)
	}

	if errors.Is(sellErr, ledger.ErrSoldOut) {
		return nil, fail(ErrTierSoldOut, "Tier sold out")
	}

	decision := o.verifier.Verify(ctx, txID)
	out.Decision = decision
	if !decision.Accepted {
		return nil, o.rejection(e, tierName, tier, txID,
			"Transaction verification failed: "+decision.Status, decision.Reason)
	}

	if _, err := o.ledger.Increment(ctx, e.ID, tierName); err != nil {
		switch {
		case errors.Is(err, ledger.ErrSoldOut):
			return nil, fail(ErrTierSoldOut, "Tier sold out")
		case errors.Is(err, repository.ErrEventNotFound):
			return nil, fail(ErrEventNotFound, "Event not found")
		}
		return nil, internal(err)
	}

	t, created, err := o.issuer.Issue(ctx, ticket.IssueRequest{
		EventID:       e.ID,
		Buyer:         buyer,
		Tier:          tierName,
		TransactionID: txID,
	})
	if err != nil || !created {
		if rerr := o.ledger.Release(ctx, e.ID, tierName); rerr != nil {
			o.log.ErrorContext(ctx, "release reserved seat", "event", e.ID, "tier", tierName, "error", rerr)
		}
	}
	if err != nil {
		return nil, internal(err)
	}
	if !created {
		return o.replay(out, t, buyer, txID, proof)
	}

	o.log.InfoContext(ctx, "ticket issued",
		"ticket", t.ID, "event", e.ID, "tier", tierName, "tx", txID, "optimistic", decision.Optimistic)
	return o.settle(out, t, true, buyer, txID, proof)
}

// replay settles a proof whose transaction already has a ticket.  The
// transaction may only be replayed by the buyer and tier it paid for.
func (o *Orchestrator) replay(out *Outcome, t *model.Ticket, buyer, txID string, proof *x402.PaymentPayload) (*Outcome, error) {
	if t.OwnerAddress != buyer || t.Tier != out.Tier {
		_, tier, sellErr := o.ledger.CheckSellable(out.Event, string(out.Tier))
		rej := o.rejection(out.Event, out.Tier, tier, txID,
			"Transaction verification failed: transaction already used", "transaction already used for another ticket")
		if errors.Is(sellErr, ledger.ErrSoldOut) {
			rej.Retry = nil
		}
		return nil, rej
	}
	return o.settle(out, t, false, buyer, txID, proof)
}

func (o *Orchestrator) settle(out *Outcome, t *model.Ticket, created bool, buyer, txID string, proof *x402.PaymentPayload) (*Outcome, error) {
	network := proof.Accepted.Network
	if network == "" {
		network = x402.NetworkToCAIP2(o.cfg.Network)
	}
	s := &x402.SettlementResponse{Success: true, Payer: buyer, Transaction: txID, Network: network}
	header, err := x402.Encode(s)
	if err != nil {
		return nil, internal(err)
	}
	out.State = Settled
	out.Ticket = t
	out.Created = created
	out.Settlement = s
	out.SettlementHeader = header
	return out, nil
}

func (o *Orchestrator) rejection(e *model.Event, name model.TierName, tier model.Tier, txID, msg, reason string) *Error {
	err := &Error{Kind: ErrVerificationFailed, Message: msg, TransactionID: txID, Reason: reason}
	if challenge, _, cerr := o.challenge(e, name, tier); cerr == nil {
		err.Retry = challenge
	}
	return err
}

// challenge builds the payment challenge for one tier.  The organizer is
// the recipient.
func (o *Orchestrator) challenge(e *model.Event, name model.TierName, tier model.Tier) (*x402.PaymentRequired, string, error) {
	c := x402.BuildPaymentRequired(x402.ChallengeParams{
		Amount:  tier.Price,
		PayTo:   e.OrganizerAddress,
		Network: o.cfg.Network,
		Asset:   o.cfg.Asset,
		Description: fmt.Sprintf("%s - %s ticket (%s)",
			e.Title, strings.ToUpper(string(name)), x402.FormatAmount(tier.Price, o.cfg.Asset)),
		Resource:          fmt.Sprintf("partystacker://event/%s/ticket/%s", e.ID, name),
		MaxTimeoutSeconds: o.cfg.MaxTimeoutSeconds,
	})
	header, err := x402.Encode(c)
	if err != nil {
		return nil, "", err
	}
	return &c, header, nil
}
