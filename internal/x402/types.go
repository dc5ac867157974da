// Package x402 implements the message types and header codec of the x402
// V2 payment-required protocol, as spoken between the ticket purchase
// endpoint and a paying client.  All header values are base64 encoded JSON.
package x402

// Version is the only protocol version accepted by this implementation.
const Version = 2

// Header names defined by x402 V2.
const (
	HeaderPaymentRequired  = "payment-required"
	HeaderPaymentSignature = "payment-signature"
	HeaderPaymentResponse  = "payment-response"
)

// SchemeExact requires the payer to transfer exactly the stated amount.
const SchemeExact = "exact"

// Network names accepted in configuration and their CAIP-2 identifiers.
const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"

	CAIP2Mainnet = "stacks:1"
	CAIP2Testnet = "stacks:2147483648"
)

// DefaultAsset and DefaultMaxTimeoutSeconds are used when the caller does
// not override them.
const (
	DefaultAsset             = "STX"
	DefaultMaxTimeoutSeconds = 300
)

// Resource identifies what is being paid for.
type Resource struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PaymentRequirements describes one acceptable way to pay.  Amount is an
// integer string in minor units (major × 10^6).
type PaymentRequirements struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	Amount            string `json:"amount"`
	Asset             string `json:"asset"`
	PayTo             string `json:"payTo"`
	MaxTimeoutSeconds int    `json:"maxTimeoutSeconds"`
}

// PaymentRequired is the challenge returned with HTTP 402.  It is built per
// attempt and never stored.
type PaymentRequired struct {
	X402Version int                   `json:"x402Version"`
	Resource    Resource              `json:"resource"`
	Accepts     []PaymentRequirements `json:"accepts"`
}

// ProofPayload carries the settled transaction id and optionally the raw
// signed transaction.
type ProofPayload struct {
	Transaction string `json:"transaction"`
	TxRaw       string `json:"txRaw,omitempty"`
}

// PaymentPayload is the proof a client sends in the payment-signature
// header after paying.
type PaymentPayload struct {
	X402Version int                 `json:"x402Version"`
	Resource    Resource            `json:"resource"`
	Accepted    PaymentRequirements `json:"accepted"`
	Payload     ProofPayload        `json:"payload"`
}

// SettlementResponse is returned in the payment-response header once a
// proof has been accepted.
type SettlementResponse struct {
	Success     bool   `json:"success"`
	Payer       string `json:"payer"`
	Transaction string `json:"transaction"`
	Network     string `json:"network"`
}
