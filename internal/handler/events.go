package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/partystacker/internal/middleware"
	"github.com/iliyamo/partystacker/internal/model"
	"github.com/iliyamo/partystacker/internal/repository"
)

// EventHandler serves event creation, listing, lookup and updates.
type EventHandler struct {
	Events   EventStore
	Resolver EventResolver
	Cache    CacheInvalidator // optional
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events EventStore, resolver EventResolver, cache CacheInvalidator) *EventHandler {
	if events == nil || resolver == nil {
		panic("nil dependency passed to NewEventHandler")
	}
	return &EventHandler{Events: events, Resolver: resolver, Cache: cache}
}

type tierInput struct {
	Price     *float64 `json:"price"`
	Available *int     `json:"available"`
}

type createEventBody struct {
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Location      string               `json:"location"`
	Date          int64                `json:"date"`
	ImageURL      string               `json:"imageUrl"`
	NFTImageURL   string               `json:"nftImageUrl"`
	MetadataURI   string               `json:"metadataUri"`
	OrganizerName string               `json:"organizerName"`
	Tiers         map[string]tierInput `json:"tiers"`
}

// Create handles POST /api/events.  The organizer is the authenticated
// caller.  Every one of the three tiers must carry a price and a capacity;
// sold counters start at zero.
func (h *EventHandler) Create(c echo.Context) error {
	organizer := middleware.OrganizerAddress(c)
	if organizer == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createEventBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(body.Title) == "" || strings.TrimSpace(body.Location) == "" || body.Date <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid event data"})
	}

	name := body.OrganizerName
	if name == "" {
		name = middleware.OrganizerName(c)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create event"})
	}
	e := &model.Event{
		ID:               "evt-" + id.String(),
		Title:            strings.TrimSpace(body.Title),
		Description:      body.Description,
		Location:         strings.TrimSpace(body.Location),
		Date:             body.Date,
		ImageURL:         body.ImageURL,
		NFTImageURL:      body.NFTImageURL,
		MetadataURI:      body.MetadataURI,
		OrganizerAddress: organizer,
		OrganizerName:    name,
		CreatedAt:        time.Now().UnixMilli(),
		Status:           model.EventUpcoming,
	}
	for _, tn := range model.TierNames() {
		in, ok := body.Tiers[string(tn)]
		if !ok || in.Price == nil || in.Available == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid " + string(tn) + " tier data"})
		}
		t, _ := e.Tiers.Get(tn)
		*t = model.Tier{Price: *in.Price, Available: *in.Available}
	}
	if err := e.ValidateTiers(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	if err := h.Events.Create(ctx, e); err != nil {
		slog.ErrorContext(ctx, "create event", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create event"})
	}
	h.invalidate(c)
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "event": e})
}

// List handles GET /api/events with an optional ?organizer= filter.
func (h *EventHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		events []model.Event
		err    error
	)
	if organizer := c.QueryParam("organizer"); organizer != "" {
		events, err = h.Events.ListByOrganizer(ctx, organizer)
	} else {
		events, err = h.Events.List(ctx)
	}
	if err != nil {
		slog.ErrorContext(ctx, "list events", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch events"})
	}
	return c.JSON(http.StatusOK, events)
}

// Get handles GET /api/events/:id.  Ids of the form chain-N are read
// through the on-chain mirror when not stored yet.
func (h *EventHandler) Get(c echo.Context) error {
	e, err := h.Resolver.Resolve(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch event"})
	}
	return c.JSON(http.StatusOK, e)
}

// Update handles PATCH /api/events/:id.  Only the event's organizer may
// change it, and tier counters cannot be changed.
func (h *EventHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if e.OrganizerAddress != middleware.OrganizerAddress(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the event organizer can update the event"})
	}
	var patch model.EventPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	updated, err := h.Events.Update(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNoChange):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	h.invalidate(c)
	return c.JSON(http.StatusOK, updated)
}

func (h *EventHandler) invalidate(c echo.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Invalidate(c.Request().Context()); err != nil {
		slog.WarnContext(c.Request().Context(), "event cache invalidation failed", "error", err)
	}
}
