package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	ctxOrganizerAddress = "organizer_address"
	ctxOrganizerName    = "organizer_name"
	ctxRole             = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer token signed
// with secret (HS256) and stores the organizer's wallet address (sub),
// display name (name) and role claims in the request context.  Tokens are
// minted by cmd/orgtoken.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims := jwt.MapClaims{}
			tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			sub, _ := claims["sub"].(string)
			if sub == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			c.Set(ctxOrganizerAddress, sub)
			if name, ok := claims["name"].(string); ok {
				c.Set(ctxOrganizerName, name)
			}
			c.Set(ctxRole, claims["role"])
			return next(c)
		}
	}
}
