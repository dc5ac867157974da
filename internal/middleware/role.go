package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RoleOrganizer is the role claim carried by organizer tokens.
const RoleOrganizer = "ORGANIZER"

// RequireRole returns a middleware that rejects requests whose role claim,
// as stored by JWTAuth, is not one of roles.  The request is aborted with
// 403 Forbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ctxRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
