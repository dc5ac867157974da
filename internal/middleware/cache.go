package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/partystacker/internal/config"
)

// captureWriter copies the response body, up to limit bytes, while
// forwarding it to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int64
	over   bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.over {
		if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
			cw.over = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// ResponseCache caches successful GET responses of event reads in Redis.
// Writers that change event state call Invalidate after committing.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

// NewResponseCache returns a cache.  A nil rdb or disabled config yields a
// cache whose middleware passes through and whose Invalidate is a no-op.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
	if !cfg.Enabled {
		rdb = nil
	}
	return &ResponseCache{cfg: cfg, rdb: rdb}
}

func (rc *ResponseCache) key(c echo.Context) string {
	r := c.Request()
	var tail string
	switch strings.ToLower(rc.cfg.KeyStrategy) {
	case "route":
		tail = "route:" + c.Path()
	default:
		tail = "route:" + r.URL.Path + ":q:" + r.URL.RawQuery
	}
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", rc.cfg.Prefix, sum[:])
}

// Middleware serves cached GET responses and stores 200 responses.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if rc.rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			key := rc.key(c)

			if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, "Content-Length") {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, err := c.Response().Write(body)
					return err
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(rc.cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.over {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := rc.rdb.SetEx(context.WithoutCancel(ctx), key, payload, rc.cfg.TTL).Err(); err != nil {
				slog.WarnContext(ctx, "cache store failed", "key", key, "error", err)
			}
			return nil
		}
	}
}

// Invalidate drops every cached event response.
func (rc *ResponseCache) Invalidate(ctx context.Context) error {
	if rc.rdb == nil {
		return nil
	}
	var keys []string
	iter := rc.rdb.Scan(ctx, 0, rc.cfg.Prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return rc.rdb.Del(ctx, keys...).Err()
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}
