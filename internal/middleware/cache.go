package middleware

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/nomadica/circuit-sync/internal/config"
)

// captureWriter buffers the response so a successful body can be stored
// in Redis after the handler runs.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
	over   bool
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if !w.over {
		if w.buf.Len()+len(b) <= w.limit {
			w.buf.Write(b)
		} else {
			w.over = true
			w.buf.Reset()
		}
	}
	return w.ResponseWriter.Write(b)
}

// encodePayload packs status, headers and body into a single value:
// [4B status][4B header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdr := map[string][]string{}
	for k, v := range header {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		hdr[k] = v
	}
	hb, err := json.Marshal(hdr)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8, 8+len(hb)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hb)))
	out = append(out, hb...)
	out = append(out, body...)
	return out, nil
}

func decodePayload(raw []byte) (int, http.Header, []byte, bool) {
	if len(raw) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(raw[0:4]))
	hlen := int(binary.BigEndian.Uint32(raw[4:8]))
	if 8+hlen > len(raw) {
		return 0, nil, nil, false
	}
	var hdr map[string][]string
	if err := json.Unmarshal(raw[8:8+hlen], &hdr); err != nil {
		return 0, nil, nil, false
	}
	return status, http.Header(hdr), raw[8+hlen:], true
}

// NewRedisCache caches successful responses on the public browse routes
// for the configured TTL. Agencies polling circuit availability see the
// same figures for a few seconds instead of hammering the database.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !cfg.Methods[req.Method] {
				return next(c)
			}

			key := buildCacheKey(cfg, c)
			ctx := req.Context()

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(raw); ok {
					for k, vals := range hdr {
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(status, hdr.Get("Content-Type"), body)
				}
				// Corrupt entry; drop it and fall through.
				rdb.Del(ctx, key)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			if cw.status == http.StatusOK && !cw.over && cw.buf.Len() > 0 {
				if payload, err := encodePayload(cw.status, c.Response().Header(), cw.buf.Bytes()); err == nil {
					rdb.SetEx(ctx, key, payload, cfg.TTL)
				}
			}
			return nil
		}
	}
}

func buildCacheKey(cfg config.CacheConfig, c echo.Context) string {
	req := c.Request()
	var sb strings.Builder
	sb.WriteString(req.Method)
	sb.WriteByte('|')
	sb.WriteString(req.URL.Path)
	if strings.ToLower(cfg.KeyStrategy) == "route_query" && req.URL.RawQuery != "" {
		sb.WriteByte('?')
		sb.WriteString(req.URL.RawQuery)
	}
	sum := sha1.Sum([]byte(sb.String()))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}
