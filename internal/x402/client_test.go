package x402

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWallet struct {
	paid []PaymentRequirements
	txID string
	err  error
}

func (w *fakeWallet) Pay(_ context.Context, req PaymentRequirements) (string, error) {
	w.paid = append(w.paid, req)
	return w.txID, w.err
}

// purchaseServer answers 402 without proof and 201 with a proof for the
// expected transaction.
func purchaseServer(t *testing.T, wantTx string) *httptest.Server {
	t.Helper()
	challenge := sampleChallenge()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tickets/purchase", r.URL.Path)
		var body PurchaseRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sig := r.Header.Get(HeaderPaymentSignature)
		if sig == "" {
			hdr, _ := Encode(challenge)
			w.Header().Set(HeaderPaymentRequired, hdr)
			w.WriteHeader(http.StatusPaymentRequired)
			_ = json.NewEncoder(w).Encode(challenge)
			return
		}
		proof, ok := Decode[PaymentPayload](sig)
		if !ok || proof.Payload.Transaction != wantTx {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"error":"Transaction verification failed: abort_by_response"}`))
			return
		}
		hdr, _ := Encode(SettlementResponse{Success: true, Payer: body.BuyerAddress, Transaction: wantTx, Network: proof.Accepted.Network})
		w.Header().Set(HeaderPaymentResponse, hdr)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"ticket":{"id":"tkt-1"}}`))
	}))
}

func TestClientPurchase(t *testing.T) {
	srv := purchaseServer(t, "0xabc")
	defer srv.Close()

	w := &fakeWallet{txID: "0xabc"}
	r, err := NewClient(srv.URL, nil).Purchase(context.Background(),
		PurchaseRequest{EventID: "E1", Tier: "general", BuyerAddress: "ST1BUYER"}, w)
	require.NoError(t, err)

	require.Len(t, w.paid, 1)
	assert.Equal(t, "50000000", w.paid[0].Amount)
	assert.Equal(t, "ST1ORGANIZER", w.paid[0].PayTo)
	assert.Equal(t, "0xabc", r.Transaction)
	assert.True(t, r.Settlement.Success)
	assert.Equal(t, "ST1BUYER", r.Settlement.Payer)
	assert.Equal(t, CAIP2Testnet, r.Settlement.Network)
	assert.JSONEq(t, `{"success":true,"ticket":{"id":"tkt-1"}}`, string(r.Body))
}

func TestClientPurchaseRejected(t *testing.T) {
	srv := purchaseServer(t, "0xabc")
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Purchase(context.Background(),
		PurchaseRequest{EventID: "E1", Tier: "general", BuyerAddress: "ST1BUYER"}, &fakeWallet{txID: "0xother"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusPaymentRequired, se.Code)
	assert.Contains(t, se.Message, "verification failed")
}

func TestClientPurchaseWalletError(t *testing.T) {
	srv := purchaseServer(t, "0xabc")
	defer srv.Close()

	walletErr := errors.New("user rejected")
	_, err := NewClient(srv.URL, nil).Purchase(context.Background(),
		PurchaseRequest{EventID: "E1", Tier: "general", BuyerAddress: "ST1BUYER"}, &fakeWallet{err: walletErr})
	assert.ErrorIs(t, err, walletErr)
}

func TestClientPurchaseNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Event not found"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Purchase(context.Background(), PurchaseRequest{EventID: "nope"}, &fakeWallet{})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "Event not found", se.Message)
}
