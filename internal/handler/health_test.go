package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/partystacker/internal/purchase"
)

func TestHealth(t *testing.T) {
	e := echo.New()
	for name, tc := range map[string]struct {
		check func(context.Context) error
		code  int
	}{
		"no check": {nil, http.StatusOK},
		"healthy":  {func(context.Context) error { return nil }, http.StatusOK},
		"down":     {func(context.Context) error { return errors.New("db down") }, http.StatusServiceUnavailable},
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
			require.NoError(t, Health(tc.check)(c))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestPurchaseStatus(t *testing.T) {
	cases := map[error]int{
		purchase.ErrValidation:         http.StatusBadRequest,
		purchase.ErrEventNotFound:      http.StatusNotFound,
		purchase.ErrInvalidTier:        http.StatusBadRequest,
		purchase.ErrTierSoldOut:        http.StatusBadRequest,
		purchase.ErrMalformedProof:     http.StatusBadRequest,
		purchase.ErrUnsupportedVersion: http.StatusBadRequest,
		purchase.ErrMissingTransaction: http.StatusBadRequest,
		purchase.ErrVerificationFailed: http.StatusPaymentRequired,
		purchase.ErrInternal:           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, purchaseStatus(&purchase.Error{Kind: kind}), kind.Error())
	}
}

func TestNewPurchaseHandlerRequiresOrchestrator(t *testing.T) {
	assert.Panics(t, func() { NewPurchaseHandler(nil, nil, nil, "STX", "") })
}
