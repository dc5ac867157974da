package x402

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Wallet pays a requirement on behalf of the buyer and returns the id of
// the broadcast transaction.  Signing and broadcasting happen outside this
// package.
type Wallet interface {
	Pay(ctx context.Context, req PaymentRequirements) (txID string, err error)
}

// PurchaseRequest is the JSON body of a ticket purchase.
type PurchaseRequest struct {
	EventID      string `json:"eventId"`
	Tier         string `json:"tier"`
	BuyerAddress string `json:"buyerAddress"`
}

// Receipt is the outcome of a completed purchase.
type Receipt struct {
	Challenge   PaymentRequired
	Transaction string
	Settlement  SettlementResponse
	// Body is the raw 201 response body, including the issued ticket.
	Body json.RawMessage
}

// StatusError is returned when the server answers with an unexpected
// status.  Message is the "error" field of the body when present.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("x402: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("x402: status %d: %s", e.Code, e.Message)
}

// ErrNoChallenge is returned when a 402 response carries no decodable
// payment-required header or body.
var ErrNoChallenge = errors.New("x402: 402 response without a payment challenge")

// Client drives the two round trips of a purchase against a PartyStacker
// server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for baseURL.  A nil httpClient gets a 30s
// timeout client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Purchase requests a challenge, lets the wallet pay its first requirement
// and resubmits with the resulting proof.
func (c *Client) Purchase(ctx context.Context, req PurchaseRequest, w Wallet) (*Receipt, error) {
	status, hdr, body, err := c.post(ctx, req, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusPaymentRequired {
		return nil, statusError(status, body)
	}
	challenge, ok := Decode[PaymentRequired](hdr.Get(HeaderPaymentRequired))
	if !ok {
		challenge = new(PaymentRequired)
		if err := json.Unmarshal(body, challenge); err != nil || len(challenge.Accepts) == 0 {
			return nil, ErrNoChallenge
		}
	}
	if len(challenge.Accepts) == 0 {
		return nil, ErrNoRequirements
	}

	txID, err := w.Pay(ctx, challenge.Accepts[0])
	if err != nil {
		return nil, fmt.Errorf("x402: wallet: %w", err)
	}
	proof, err := BuildPaymentPayload(*challenge, txID, "")
	if err != nil {
		return nil, err
	}
	signature, err := Encode(proof)
	if err != nil {
		return nil, err
	}

	status, hdr, body, err = c.post(ctx, req, signature)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, statusError(status, body)
	}
	receipt := &Receipt{Challenge: *challenge, Transaction: txID, Body: body}
	if s, ok := Decode[SettlementResponse](hdr.Get(HeaderPaymentResponse)); ok {
		receipt.Settlement = *s
	}
	return receipt, nil
}

func (c *Client) post(ctx context.Context, req PurchaseRequest, signature string) (int, http.Header, []byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, nil, nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tickets/purchase", bytes.NewReader(payload))
	if err != nil {
		return 0, nil, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if signature != "" {
		httpReq.Header.Set(HeaderPaymentSignature, signature)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, resp.Header, body, nil
}

func statusError(code int, body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &e)
	return &StatusError{Code: code, Message: e.Error}
}
