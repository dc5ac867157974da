package purchase

import (
	"errors"

	"github.com/iliyamo/partystacker/internal/x402"
)

// Error kinds.  Every error returned by Orchestrator.Handle is an *Error
// whose Kind is one of these, so callers can use errors.Is.
var (
	ErrValidation         = errors.New("validation error")
	ErrEventNotFound      = errors.New("event not found")
	ErrInvalidTier        = errors.New("invalid tier")
	ErrTierSoldOut        = errors.New("tier sold out")
	ErrMalformedProof     = errors.New("malformed proof")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrMissingTransaction = errors.New("missing transaction")
	ErrVerificationFailed = errors.New("verification failed")
	ErrInternal           = errors.New("internal error")
)

// Error is a purchase failure with the message shown to the client.
//
// TransactionID, Reason and Retry are only set for ErrVerificationFailed.
// Retry is a fresh challenge the client may pay again.
type Error struct {
	Kind          error
	Message       string
	TransactionID string
	Reason        string
	Retry         *x402.PaymentRequired
	Cause         error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func fail(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func internal(cause error) *Error {
	return &Error{Kind: ErrInternal, Message: cause.Error(), Cause: cause}
}

// KindName returns a short label for err's kind, used in metrics and logs.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrEventNotFound):
		return "event_not_found"
	case errors.Is(err, ErrInvalidTier):
		return "invalid_tier"
	case errors.Is(err, ErrTierSoldOut):
		return "tier_sold_out"
	case errors.Is(err, ErrMalformedProof):
		return "malformed_proof"
	case errors.Is(err, ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, ErrMissingTransaction):
		return "missing_transaction"
	case errors.Is(err, ErrVerificationFailed):
		return "verification_failed"
	default:
		return "internal"
	}
}
