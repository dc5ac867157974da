package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/partystacker/internal/utils"
)

const testSecret = "test-secret"

func serve(t *testing.T, mw []echo.MiddlewareFunc, auth string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var seen echo.Context
	h := func(c echo.Context) error {
		seen = c
		return c.NoContent(http.StatusNoContent)
	}
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	require.NoError(t, h(c))
	return rec, seen
}

func TestJWTAuth(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, "ST1ORG", "Org Name", RoleOrganizer, 5)
	require.NoError(t, err)

	rec, c := serve(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, c)
	assert.Equal(t, "ST1ORG", OrganizerAddress(c))
	assert.Equal(t, "Org Name", OrganizerName(c))
	assert.Equal(t, "ST1ORG", callerID(c))
}

func TestJWTAuthRejects(t *testing.T) {
	wrongKey, err := utils.NewAccessToken("other-secret", "ST1ORG", "", RoleOrganizer, 5)
	require.NoError(t, err)
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ST1ORG", "exp": time.Now().Add(-time.Minute).Unix(),
	})
	expiredTok, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)
	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": RoleOrganizer}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, auth := range map[string]string{
		"missing":   "",
		"basic":     "Basic Zm9vOmJhcg==",
		"wrong key": "Bearer " + wrongKey.Token,
		"expired":   "Bearer " + expiredTok,
		"no sub":    "Bearer " + noSub,
		"garbage":   "Bearer not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			rec, c := serve(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, auth)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, c)
		})
	}
}

func TestRequireRole(t *testing.T) {
	organizer, err := utils.NewAccessToken(testSecret, "ST1ORG", "", RoleOrganizer, 5)
	require.NoError(t, err)
	viewer, err := utils.NewAccessToken(testSecret, "ST1VIEW", "", "VIEWER", 5)
	require.NoError(t, err)
	chain := []echo.MiddlewareFunc{JWTAuth(testSecret), RequireRole(RoleOrganizer)}

	rec, _ := serve(t, chain, "Bearer "+organizer.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = serve(t, chain, "Bearer "+viewer.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = serve(t, []echo.MiddlewareFunc{RequireRole(RoleOrganizer)}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
