package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/partystacker/internal/model"
	"github.com/iliyamo/partystacker/internal/purchase"
	"github.com/iliyamo/partystacker/internal/x402"
)

// Protocol is reported in the payment section of a settled purchase.
const Protocol = "x402-stacks"

// PurchaseHandler serves POST /api/tickets/purchase.
type PurchaseHandler struct {
	Orchestrator   *purchase.Orchestrator
	Notifier       Notifier         // optional
	Cache          CacheInvalidator // optional
	Asset          string
	FacilitatorURL string
}

// NewPurchaseHandler constructs a PurchaseHandler.  The orchestrator must
// be non-nil.
func NewPurchaseHandler(o *purchase.Orchestrator, n Notifier, cache CacheInvalidator, asset, facilitatorURL string) *PurchaseHandler {
	if o == nil {
		panic("nil orchestrator passed to NewPurchaseHandler")
	}
	return &PurchaseHandler{Orchestrator: o, Notifier: n, Cache: cache, Asset: asset, FacilitatorURL: facilitatorURL}
}

type purchaseBody struct {
	EventID      string `json:"eventId"`
	Tier         string `json:"tier"`
	BuyerAddress string `json:"buyerAddress"`
}

type paymentReceipt struct {
	Success         bool    `json:"success"`
	Payer           string  `json:"payer"`
	Transaction     string  `json:"transaction"`
	Network         string  `json:"network"`
	Amount          float64 `json:"amount"`
	AmountFormatted string  `json:"amountFormatted"`
	Recipient       string  `json:"recipient"`
	Protocol        string  `json:"protocol"`
	X402Version     int     `json:"x402Version"`
	FacilitatorURL  string  `json:"facilitatorUrl"`
}

// Purchase runs one round trip of the x402 handshake.  Without a
// payment-signature header it answers 402 with the challenge in both the
// body and the payment-required header.  With a valid proof it answers 201
// with the ticket and a payment-response header.  A replayed proof answers
// 201 with the ticket it already paid for.
func (h *PurchaseHandler) Purchase(c echo.Context) error {
	var body purchaseBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()
	out, err := h.Orchestrator.Handle(ctx, purchase.Request{
		EventID:          body.EventID,
		Tier:             body.Tier,
		BuyerAddress:     body.BuyerAddress,
		PaymentSignature: c.Request().Header.Get(x402.HeaderPaymentSignature),
	})
	if err != nil {
		return h.writeError(c, err)
	}

	if out.State == purchase.ChallengeIssued {
		c.Response().Header().Set(x402.HeaderPaymentRequired, out.ChallengeHeader)
		return c.JSON(http.StatusPaymentRequired, out.Challenge)
	}

	if out.Created {
		h.afterIssue(ctx, out.Ticket, out.Event)
	}
	c.Response().Header().Set(x402.HeaderPaymentResponse, out.SettlementHeader)
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"ticket":  out.Ticket,
		"payment": paymentReceipt{
			Success:         out.Settlement.Success,
			Payer:           out.Settlement.Payer,
			Transaction:     out.Settlement.Transaction,
			Network:         out.Settlement.Network,
			Amount:          out.Price,
			AmountFormatted: x402.FormatAmount(out.Price, h.Asset),
			Recipient:       out.Event.OrganizerAddress,
			Protocol:        Protocol,
			X402Version:     x402.Version,
			FacilitatorURL:  h.FacilitatorURL,
		},
	})
}

// afterIssue publishes the notification and drops cached event reads.
// Neither affects the response.
func (h *PurchaseHandler) afterIssue(ctx context.Context, t *model.Ticket, e *model.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if h.Notifier != nil {
		_ = h.Notifier.PublishTicketIssued(ctx, t, e)
	}
	if h.Cache != nil {
		if err := h.Cache.Invalidate(ctx); err != nil {
			slog.WarnContext(ctx, "event cache invalidation failed", "error", err)
		}
	}
}

func (h *PurchaseHandler) writeError(c echo.Context, err error) error {
	var perr *purchase.Error
	if !errors.As(err, &perr) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	status := purchaseStatus(perr)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "purchase failed", "error", perr.Cause)
	}
	if errors.Is(perr, purchase.ErrVerificationFailed) {
		if perr.Retry != nil {
			if hdr, err := x402.Encode(perr.Retry); err == nil {
				c.Response().Header().Set(x402.HeaderPaymentRequired, hdr)
			}
		}
		return c.JSON(status, echo.Map{
			"error":         perr.Message,
			"transactionId": perr.TransactionID,
			"reason":        perr.Reason,
		})
	}
	return c.JSON(status, echo.Map{"error": perr.Message})
}

func purchaseStatus(err error) int {
	switch {
	case errors.Is(err, purchase.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, purchase.ErrVerificationFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, purchase.ErrInternal):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
