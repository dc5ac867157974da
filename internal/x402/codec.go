package x402

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

// Proof validation errors, in the order they are checked.
var (
	ErrMalformedProof     = errors.New("x402: malformed payment payload")
	ErrUnsupportedVersion = errors.New("x402: only version 2 is supported")
	ErrMissingTransaction = errors.New("x402: missing transaction in payment payload")
)

// Encode serialises v as JSON and base64 encodes it for use as a header
// value.
func Encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Decode reverses Encode.  It never panics: empty, non-base64, non-JSON or
// JSON null input yields (nil, false).  Unpadded base64 is accepted.
func Decode[T any](header string) (*T, bool) {
	raw, ok := decodeRaw(header)
	if !ok {
		return nil, false
	}
	var v *T
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

func decodeRaw(header string) ([]byte, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(header)
		if err != nil {
			return nil, false
		}
	}
	return raw, true
}

// DecodeProof decodes and validates a payment-signature header.  The
// version is read on its own before the typed payload, so a non-V2 proof is
// reported as ErrUnsupportedVersion whatever shape its other fields have.
// Undecodable input yields ErrMalformedProof.
func DecodeProof(header string) (*PaymentPayload, error) {
	raw, ok := decodeRaw(header)
	if !ok {
		return nil, ErrMalformedProof
	}
	var head *struct {
		X402Version json.RawMessage `json:"x402Version"`
	}
	if err := json.Unmarshal(raw, &head); err != nil || head == nil {
		return nil, ErrMalformedProof
	}
	var version int
	if err := json.Unmarshal(head.X402Version, &version); err != nil || version != Version {
		return nil, ErrUnsupportedVersion
	}
	var p *PaymentPayload
	if err := json.Unmarshal(raw, &p); err != nil || p == nil {
		return nil, ErrMalformedProof
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks a decoded proof.  The version gate is applied first.
func (p *PaymentPayload) Validate() error {
	if p.X402Version != Version {
		return ErrUnsupportedVersion
	}
	if strings.TrimSpace(p.Payload.Transaction) == "" {
		return ErrMissingTransaction
	}
	return nil
}
