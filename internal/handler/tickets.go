package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/partystacker/internal/middleware"
	"github.com/iliyamo/partystacker/internal/model"
	"github.com/iliyamo/partystacker/internal/repository"
	"github.com/iliyamo/partystacker/internal/ticket"
)

// TicketHandler serves ticket queries, QR verification, check-in and the
// reward hook.
type TicketHandler struct {
	Tickets TicketReader
	Checkin *ticket.Checkin
	Signer  *ticket.Signer
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(tickets TicketReader, checkin *ticket.Checkin, signer *ticket.Signer) *TicketHandler {
	if tickets == nil || checkin == nil || signer == nil {
		panic("nil dependency passed to NewTicketHandler")
	}
	return &TicketHandler{Tickets: tickets, Checkin: checkin, Signer: signer}
}

// List handles GET /api/tickets?owner=... or ?eventId=....
func (h *TicketHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		tickets []model.Ticket
		err     error
	)
	switch owner, eventID := c.QueryParam("owner"), c.QueryParam("eventId"); {
	case owner != "":
		tickets, err = h.Tickets.ListByOwner(ctx, owner)
	case eventID != "":
		tickets, err = h.Tickets.ListByEvent(ctx, eventID)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "owner or eventId parameter required"})
	}
	if err != nil {
		slog.ErrorContext(ctx, "list tickets", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch tickets"})
	}
	return c.JSON(http.StatusOK, tickets)
}

// Get handles GET /api/tickets/:id.
func (h *TicketHandler) Get(c echo.Context) error {
	t, err := h.Tickets.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, t)
}

// Verify handles POST /api/tickets/verify.  It checks the signature and age
// of a scanned QR payload without touching the ticket.
func (h *TicketHandler) Verify(c echo.Context) error {
	var body struct {
		QRData string `json:"qrData"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.QRData) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "qrData is required"})
	}
	p, err := h.Signer.Verify(strings.TrimSpace(body.QRData))
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"valid": false, "error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true, "payload": p})
}

// CheckIn handles POST /api/tickets/checkin for the authenticated
// organizer.
func (h *TicketHandler) CheckIn(c echo.Context) error {
	var body struct {
		TicketID string `json:"ticketId"`
	}
	if err := c.Bind(&body); err != nil || body.TicketID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing ticket ID"})
	}
	ctx := c.Request().Context()
	res, err := h.Checkin.CheckIn(ctx, body.TicketID, middleware.OrganizerAddress(c))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyCheckedIn):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":       "Ticket already checked in",
				"checkinTime": res.Ticket.CheckinTime,
			})
		case errors.Is(err, repository.ErrTicketNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Ticket not found"})
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Event not found"})
		case errors.Is(err, ticket.ErrNotOrganizer):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Only the event organizer can check in tickets"})
		}
		slog.ErrorContext(ctx, "check-in", "ticket", body.TicketID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Check-in failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":         true,
		"checkedIn":       true,
		"checkinTime":     res.Ticket.CheckinTime,
		"rewardRequested": res.RewardRequested,
		"ticket": echo.Map{
			"id":           res.Ticket.ID,
			"tier":         res.Ticket.Tier,
			"ownerAddress": res.Ticket.OwnerAddress,
		},
		"event": echo.Map{
			"title": res.Event.Title,
			"date":  res.Event.Date,
		},
		"message": "Welcome to " + res.Event.Title + "!",
	})
}

// RecordReward handles POST /api/tickets/:id/reward, called once the
// attendance reward for a checked-in ticket has been minted.
func (h *TicketHandler) RecordReward(c echo.Context) error {
	var body struct {
		RewardRef string `json:"rewardRef"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.RewardRef) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rewardRef is required"})
	}
	t, err := h.Checkin.RecordReward(c.Request().Context(), c.Param("id"), middleware.OrganizerAddress(c), strings.TrimSpace(body.RewardRef))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Ticket not found"})
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Event not found"})
		case errors.Is(err, ticket.ErrNotOrganizer):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, t)
}
