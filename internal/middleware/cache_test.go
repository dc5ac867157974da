package middleware

import (
	"context"
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

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		TTL:          10 * time.Second,
		KeyStrategy:  "route_query",
		Prefix:       "cache:events",
		MaxBodyBytes: 1 << 20,
	}
}

func eventsRequest(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(method, target, nil), rec), rec
}

func TestResponseCacheHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewResponseCache(cacheConfig(), db)
	c, rec := eventsRequest(http.MethodGet, "/api/events?organizer=ST1")

	payload, err := encodePayload(http.StatusOK,
		http.Header{"Content-Type": {"application/json"}}, []byte(`[{"id":"E1"}]`))
	require.NoError(t, err)
	mock.ExpectGet(rc.key(c)).SetVal(string(payload))

	err = rc.Middleware()(func(c echo.Context) error {
		t.Fatal("handler must not run on a cache hit")
		return nil
	})(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[{"id":"E1"}]`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseCacheMissStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewResponseCache(cacheConfig(), db)
	c, rec := eventsRequest(http.MethodGet, "/api/events")
	body := []byte(`{"id":"E1"}`)

	payload, err := encodePayload(http.StatusOK, http.Header{"Content-Type": {"application/json"}}, body)
	require.NoError(t, err)
	mock.ExpectGet(rc.key(c)).RedisNil()
	mock.ExpectSetEx(rc.key(c), payload, 10*time.Second).SetVal("OK")

	err = rc.Middleware()(func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/json", body)
	})(c)
	require.NoError(t, err)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, string(body), rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseCacheSkipsErrorsAndWrites(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewResponseCache(cacheConfig(), db)

	c, rec := eventsRequest(http.MethodGet, "/api/events/nope")
	mock.ExpectGet(rc.key(c)).RedisNil()
	err := rc.Middleware()(func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Event not found"})
	})(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = eventsRequest(http.MethodPost, "/api/events")
	err = rc.Middleware()(func(c echo.Context) error { return c.NoContent(http.StatusCreated) })(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseCacheDisabled(t *testing.T) {
	cfg := cacheConfig()
	cfg.Enabled = false
	db, _ := redismock.NewClientMock()
	rc := NewResponseCache(cfg, db)

	c, rec := eventsRequest(http.MethodGet, "/api/events")
	require.NoError(t, rc.Middleware()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c))
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.NoError(t, rc.Invalidate(context.Background()))
}

func TestResponseCacheInvalidate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewResponseCache(cacheConfig(), db)

	mock.ExpectScan(0, "cache:events:*", 100).SetVal([]string{"cache:events:a", "cache:events:b"}, 0)
	mock.ExpectDel("cache:events:a", "cache:events:b").SetVal(2)

	require.NoError(t, rc.Invalidate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheKeyVariesByQuery(t *testing.T) {
	rc := NewResponseCache(cacheConfig(), nil)
	a, _ := eventsRequest(http.MethodGet, "/api/events?organizer=A")
	b, _ := eventsRequest(http.MethodGet, "/api/events?organizer=B")
	assert.NotEqual(t, rc.key(a), rc.key(b))
	assert.Contains(t, rc.key(a), "cache:events:")
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}, "X-Request-Id": {"r1"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte("body"))
	require.NoError(t, err)
	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, gotHdr)
	assert.Equal(t, "body", string(body))

	_, _, _, ok = decodePayload([]byte{1, 2})
	assert.False(t, ok)
}
