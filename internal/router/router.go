// Package router registers HTTP routes on an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/partystacker/internal/handler"
	"github.com/iliyamo/partystacker/internal/middleware"
)

// Handlers bundles everything the API routes need.
type Handlers struct {
	Health    echo.HandlerFunc
	Purchase  *handler.PurchaseHandler
	Events    *handler.EventHandler
	Tickets   *handler.TicketHandler
	Analytics *handler.AnalyticsHandler
}

// Middlewares holds the per-group middleware built at startup.
type Middlewares struct {
	PurchaseLimit echo.MiddlewareFunc
	CheckinLimit  echo.MiddlewareFunc
	EventCache    echo.MiddlewareFunc
}

// RegisterRoutes registers the unauthenticated operational endpoints:
// /healthz and /metrics.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAPI registers the /api routes.  Reads and the purchase handshake
// are public; event writes, check-in and the reward hook require an
// organizer token.
func RegisterAPI(e *echo.Echo, h Handlers, mw Middlewares, jwtSecret string) {
	passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if mw.PurchaseLimit == nil {
		mw.PurchaseLimit = passthrough
	}
	if mw.CheckinLimit == nil {
		mw.CheckinLimit = passthrough
	}
	if mw.EventCache == nil {
		mw.EventCache = passthrough
	}

	api := e.Group("/api")
	organizer := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireRole(middleware.RoleOrganizer)}

	api.GET("/events", h.Events.List, mw.EventCache)
	api.GET("/events/:id", h.Events.Get, mw.EventCache)
	api.POST("/events", h.Events.Create, organizer...)
	api.PATCH("/events/:id", h.Events.Update, organizer...)

	api.POST("/tickets/purchase", h.Purchase.Purchase, mw.PurchaseLimit)
	api.POST("/tickets/verify", h.Tickets.Verify)
	api.POST("/tickets/checkin", h.Tickets.CheckIn, append(organizer, mw.CheckinLimit)...)
	api.GET("/tickets", h.Tickets.List)
	api.GET("/tickets/:id", h.Tickets.Get)
	api.POST("/tickets/:id/reward", h.Tickets.RecordReward, organizer...)

	api.GET("/analytics/:eventId", h.Analytics.Get)
}
