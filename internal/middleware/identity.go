package middleware

import "github.com/labstack/echo/v4"

// OrganizerAddress returns the wallet address of the authenticated
// organizer, or "" on unauthenticated routes.
func OrganizerAddress(c echo.Context) string {
	s, _ := c.Get(ctxOrganizerAddress).(string)
	return s
}

// OrganizerName returns the display name claim, which may be empty.
func OrganizerName(c echo.Context) string {
	s, _ := c.Get(ctxOrganizerName).(string)
	return s
}

// callerID identifies the caller for rate limiting: the organizer address
// when authenticated, "anon" otherwise.
func callerID(c echo.Context) string {
	if s := OrganizerAddress(c); s != "" {
		return s
	}
	return "anon"
}
