// Package payment decides whether a claimed chain transaction settles a
// ticket purchase.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/partystacker/internal/chain"
	"github.com/iliyamo/partystacker/internal/metrics"
)

// DefaultTimeout bounds a single chain status query.
const DefaultTimeout = 10 * time.Second

// Transaction statuses that settle a purchase.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
)

// StatusUnknown is reported when the status could not be read.
const StatusUnknown = "unknown"

// StatusQuerier reads a transaction record.  *chain.Client implements it.
type StatusQuerier interface {
	TransactionStatus(ctx context.Context, txID string) (*chain.TxStatus, error)
}

// Decision is the verifier's verdict on one transaction id.
//
// Optimistic is set when the transaction was accepted without a confirmed
// status because the query failed, timed out or the transaction was not
// indexed yet.
type Decision struct {
	Accepted   bool
	Status     string
	Reason     string
	Optimistic bool
}

// Verifier classifies transactions.  By default it prefers availability:
// an unreadable status is accepted.  In strict mode it is rejected.
type Verifier struct {
	chain   StatusQuerier
	timeout time.Duration
	strict  bool
	log     *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithStrict makes unreadable statuses reject instead of accept.
func WithStrict(strict bool) Option {
	return func(v *Verifier) { v.strict = strict }
}

// WithLogger sets the logger used for optimistic and strict decisions.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.log = l
		}
	}
}

// NewVerifier returns a Verifier reading statuses from q.
func NewVerifier(q StatusQuerier, opts ...Option) *Verifier {
	v := &Verifier{chain: q, timeout: DefaultTimeout, log: slog.Default()}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Strict reports whether the verifier rejects unreadable statuses.
func (v *Verifier) Strict() bool { return v.strict }

// Verify queries the transaction and returns a Decision.  It never
// returns an error: query failures are folded into the decision.
func (v *Verifier) Verify(ctx context.Context, txID string) Decision {
	qctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	tx, err := v.chain.TransactionStatus(qctx, txID)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, chain.ErrNotIndexed) {
			reason = "transaction not yet indexed"
		} else if errors.Is(err, context.DeadlineExceeded) {
			reason = "chain query timed out"
		}
		if v.strict {
			v.log.WarnContext(ctx, "transaction status unavailable, rejecting", "tx", txID, "reason", reason)
			metrics.Verification("rejected")
			return Decision{Status: StatusUnknown, Reason: reason}
		}
		v.log.WarnContext(ctx, "transaction status unavailable, accepting optimistically", "tx", txID, "reason", reason)
		metrics.Verification("optimistic")
		return Decision{Accepted: true, Status: StatusUnknown, Reason: reason, Optimistic: true}
	}

	v.log.InfoContext(ctx, "transaction status", "tx", txID, "status", tx.Status)
	switch tx.Status {
	case StatusPending, StatusSuccess:
		metrics.Verification("accepted")
		return Decision{Accepted: true, Status: tx.Status}
	}
	status := tx.Status
	if status == "" {
		status = StatusUnknown
	}
	metrics.Verification("rejected")
	return Decision{Status: status, Reason: tx.Result.Repr}
}
