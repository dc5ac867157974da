// Package chain queries transaction status from a Stacks API node (Hiro
// API compatible).  It does not sign, broadcast or index anything.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/iliyamo/partystacker/internal/metrics"
)

// Default API endpoints per network.
const (
	MainnetAPIURL = "https://api.hiro.so"
	TestnetAPIURL = "https://api.testnet.hiro.so"
)

// ErrNotIndexed is returned when the node does not know the transaction
// yet.  It does not count as a failure for the circuit breaker.
var ErrNotIndexed = errors.New("chain: transaction not indexed")

// TxStatus is the part of a transaction record the verifier needs.
type TxStatus struct {
	TxID   string `json:"tx_id"`
	Status string `json:"tx_status"`
	Result struct {
		Hex  string `json:"hex"`
		Repr string `json:"repr"`
	} `json:"tx_result"`
}

// DefaultAPIURL returns the Hiro endpoint for "mainnet" or "testnet".
func DefaultAPIURL(network string) string {
	if network == "mainnet" || network == "stacks:1" {
		return MainnetAPIURL
	}
	return TestnetAPIURL
}

// Client reads transaction status over HTTP behind a circuit breaker, so
// a failing node is not hammered while buyers keep retrying.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
}

// NewClient returns a client for baseURL.  httpClient may be nil; request
// deadlines come from the caller's context.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chain-status",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotIndexed)
		},
	})
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, cb: cb}
}

// TransactionStatus fetches GET {base}/extended/v1/tx/{txID}.  A 404 maps
// to ErrNotIndexed; other non-2xx statuses are errors.
func (c *Client) TransactionStatus(ctx context.Context, txID string) (*TxStatus, error) {
	started := time.Now()
	v, err := c.cb.Execute(func() (interface{}, error) {
		return c.fetch(ctx, txID)
	})
	switch {
	case err == nil:
		metrics.ChainQuery("ok", started)
	case errors.Is(err, ErrNotIndexed):
		metrics.ChainQuery("not_indexed", started)
	default:
		metrics.ChainQuery("error", started)
	}
	if err != nil {
		return nil, err
	}
	return v.(*TxStatus), nil
}

func (c *Client) fetch(ctx context.Context, txID string) (*TxStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/extended/v1/tx/"+url.PathEscape(txID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotIndexed
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("chain: unexpected status %d", resp.StatusCode)
	}
	var tx TxStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&tx); err != nil {
		return nil, fmt.Errorf("chain: decode tx: %w", err)
	}
	return &tx, nil
}
