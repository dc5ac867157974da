package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/partystacker/internal/repository"
	"github.com/iliyamo/partystacker/internal/ticket"
)

// AnalyticsHandler serves per-event sales figures.
type AnalyticsHandler struct {
	Events  EventStore
	Tickets TicketReader
}

// NewAnalyticsHandler constructs an AnalyticsHandler.
func NewAnalyticsHandler(events EventStore, tickets TicketReader) *AnalyticsHandler {
	return &AnalyticsHandler{Events: events, Tickets: tickets}
}

// Get handles GET /api/analytics/:eventId.
func (h *AnalyticsHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	e, err := h.Events.GetByID(ctx, c.Param("eventId"))
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch analytics"})
	}
	tickets, err := h.Tickets.ListByEvent(ctx, e.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch analytics"})
	}
	return c.JSON(http.StatusOK, ticket.Summarize(e, tickets))
}
