package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health returns a health-check endpoint for load balancers.  check, when
// non-nil, is run with a two second timeout (typically a database ping);
// a failing check answers 503.
func Health(check func(context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				return c.String(http.StatusServiceUnavailable, "unavailable")
			}
		}
		return c.String(http.StatusOK, "ok")
	}
}
