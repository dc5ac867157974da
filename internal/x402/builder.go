package x402

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnitExponent is the number of decimal places between the major unit
// (STX) and its minor unit (microSTX).
const MinorUnitExponent = 6

// ErrNoRequirements is returned when a challenge offers no way to pay.
var ErrNoRequirements = errors.New("x402: challenge has no payment requirements")

// ChallengeParams is the input of BuildPaymentRequired.  Amount is in major
// units.  Empty optional fields fall back to package defaults.
type ChallengeParams struct {
	Amount            float64
	PayTo             string
	Network           string
	Asset             string
	Description       string
	Resource          string
	MaxTimeoutSeconds int
}

// BuildPaymentRequired returns a challenge with exactly one requirement
// using the exact scheme.  It is pure: equal params give equal challenges.
func BuildPaymentRequired(p ChallengeParams) PaymentRequired {
	asset := p.Asset
	if asset == "" {
		asset = DefaultAsset
	}
	timeout := p.MaxTimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultMaxTimeoutSeconds
	}
	resource := p.Resource
	if resource == "" {
		resource = "partystacker://ticket"
	}
	description := p.Description
	if description == "" {
		description = "PartyStacker ticket purchase"
	}
	return PaymentRequired{
		X402Version: Version,
		Resource:    Resource{URL: resource, Description: description},
		Accepts: []PaymentRequirements{{
			Scheme:            SchemeExact,
			Network:           NetworkToCAIP2(p.Network),
			Amount:            ToMinorUnits(p.Amount),
			Asset:             asset,
			PayTo:             p.PayTo,
			MaxTimeoutSeconds: timeout,
		}},
	}
}

// BuildPaymentPayload builds the proof for the first requirement of a
// challenge after the wallet has broadcast txID.
func BuildPaymentPayload(req PaymentRequired, txID, txRaw string) (PaymentPayload, error) {
	if len(req.Accepts) == 0 {
		return PaymentPayload{}, ErrNoRequirements
	}
	return PaymentPayload{
		X402Version: Version,
		Resource:    req.Resource,
		Accepted:    req.Accepts[0],
		Payload:     ProofPayload{Transaction: txID, TxRaw: txRaw},
	}, nil
}

// ToMinorUnits converts a major unit amount into an integer string of minor
// units.  Digits beyond the sixth decimal place are truncated.
func ToMinorUnits(major float64) string {
	return decimal.NewFromFloat(major).Shift(MinorUnitExponent).Truncate(0).String()
}

// FromMinorUnits converts an integer minor unit string back to major units.
func FromMinorUnits(minor string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(minor)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Shift(-MinorUnitExponent), nil
}

// NetworkToCAIP2 maps "mainnet"/"testnet" to their CAIP-2 chain ids.
// Values that are already CAIP-2 pass through; anything else is treated as
// testnet.
func NetworkToCAIP2(network string) string {
	switch {
	case network == NetworkMainnet:
		return CAIP2Mainnet
	case strings.HasPrefix(network, "stacks:"):
		return network
	default:
		return CAIP2Testnet
	}
}

// FormatAmount renders a major unit amount for display, e.g. "50 STX".
func FormatAmount(major float64, asset string) string {
	if asset == "" {
		asset = DefaultAsset
	}
	return decimal.NewFromFloat(major).String() + " " + asset
}
