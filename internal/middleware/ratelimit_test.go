package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/partystacker/internal/config"
)

func limitConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl:purchase",
	}
}

func TestTokenBucketPassThrough(t *testing.T) {
	disabled := limitConfig()
	disabled.Enabled = false
	db, _ := redismock.NewClientMock()

	for name, mw := range map[string]echo.MiddlewareFunc{
		"disabled": NewTokenBucket(disabled, db),
		"no redis": NewTokenBucket(limitConfig(), nil),
	} {
		t.Run(name, func(t *testing.T) {
			rec, c := serve(t, []echo.MiddlewareFunc{mw}, "")
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.NotNil(t, c)
			assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
		})
	}
}

func TestTokenBucketFailsOpen(t *testing.T) {
	// no expectations: every script call errors
	db, _ := redismock.NewClientMock()

	rec, c := serve(t, []echo.MiddlewareFunc{NewTokenBucket(limitConfig(), db)}, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotNil(t, c)
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/tickets/purchase", nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/tickets/purchase")

	cfg := limitConfig()
	assert.Equal(t, "rl:purchase:ip:203.0.113.7:route:POST /api/tickets/purchase", rateKey(cfg, c))

	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:purchase:ip:203.0.113.7", rateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:purchase:user:anon", rateKey(cfg, c))
	c.Set(ctxOrganizerAddress, "ST1ORG")
	assert.Equal(t, "rl:purchase:user:ST1ORG", rateKey(cfg, c))

	cfg.KeyStrategy = "route"
	require.Equal(t, "rl:purchase:route:POST /api/tickets/purchase", rateKey(cfg, c))
}
