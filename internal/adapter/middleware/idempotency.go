package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// a reservation left behind by a crashed handler expires after this
	reservationTTL = 60 * time.Second
	// tolerated difference between Ax-Request-At and server time
	maxClockSkew = 10 * time.Minute
	storeTimeout = 2 * time.Second

	HeaderRequestID = "Ax-Request-Id"
	HeaderRequestAt = "Ax-Request-At"
	HeaderReplayed  = "Idempotent-Replayed"
)

// replayRecord is what Redis holds per key: first a pending reservation,
// then the finished response.
type replayRecord struct {
	Pending   bool      `json:"pending"`
	Status    int       `json:"status,omitempty"`
	Body      []byte    `json:"body,omitempty"`
	BodyHash  string    `json:"body_hash"`
	RequestAt time.Time `json:"request_at"`
	StoredAt  time.Time `json:"stored_at"`
}

type replayStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// reserve claims key; false means another request already holds it.
func (s replayStore) reserve(ctx context.Context, key string, r replayRecord) (bool, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, key, raw, reservationTTL).Result()
}

func (s replayStore) load(ctx context.Context, key string) (replayRecord, error) {
	var r replayRecord
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return r, err
	}
	return r, json.Unmarshal(raw, &r)
}

func (s replayStore) finish(ctx context.Context, key string, r replayRecord) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, raw, s.ttl).Err()
}

func (s replayStore) release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// capture tees the response body so it can be stored for replay.
type capture struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (c *capture) WriteHeader(code int) { c.status = code; c.ResponseWriter.WriteHeader(code) }
func (c *capture) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

// IdempotencyMiddleware makes mutating requests safe to retry. Each request
// carries Ax-Request-Id (UUID or 32 hex) and Ax-Request-At; the pair of
// admin subject and request id is reserved in Redis while the handler runs.
// A retry with the same body replays the stored response, a retry with a
// different body is a 409, and a 5xx releases the reservation so the admin
// can try again. Must run after JWTAuth.
func IdempotencyMiddleware(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) echo.MiddlewareFunc {
	store := replayStore{rdb: rdb, ttl: ttl}
	fail := func(c echo.Context, code int, msg string) error {
		return c.JSON(code, map[string]string{"error": msg})
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			reqID := strings.ToLower(strings.TrimSpace(req.Header.Get(HeaderRequestID)))
			if reqID == "" {
				return fail(c, http.StatusBadRequest, "missing "+HeaderRequestID)
			}
			if !validRequestID(reqID) {
				return fail(c, http.StatusBadRequest, "invalid "+HeaderRequestID+" format")
			}
			reqAt, err := parseRequestAt(req.Header.Get(HeaderRequestAt))
			if err != nil {
				return fail(c, http.StatusBadRequest, err.Error())
			}
			if skew := nowUTC().Sub(reqAt); skew > maxClockSkew || skew < -maxClockSkew {
				return fail(c, http.StatusBadRequest, HeaderRequestAt+" too skewed")
			}

			admin, ok := AdminFrom(c)
			if !ok || admin.Subject == "" {
				return fail(c, http.StatusUnauthorized, "missing admin identity")
			}

			var body []byte
			if req.Body != nil {
				body, _ = io.ReadAll(req.Body)
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			hash := sha256Hex(body)

			key := idempotencyKey(req.Method, c.Path(), admin.Subject, reqID)
			ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
			defer cancel()

			won, err := store.reserve(ctx, key, replayRecord{Pending: true, BodyHash: hash, RequestAt: reqAt, StoredAt: nowUTC()})
			if err != nil {
				logger.Error("idempotency store unavailable", zap.Error(err))
				return fail(c, http.StatusServiceUnavailable, "idempotency store unavailable")
			}
			if !won {
				prev, err := store.load(ctx, key)
				if err != nil {
					logger.Warn("idempotency record unreadable", zap.String("key", key), zap.Error(err))
				}
				switch {
				case prev.BodyHash != "" && prev.BodyHash != hash:
					return fail(c, http.StatusConflict, HeaderRequestID+" reused with different body")
				case !prev.Pending && prev.Status != 0:
					c.Response().Header().Set(HeaderReplayed, "true")
					return c.Blob(prev.Status, echo.MIMEApplicationJSON, prev.Body)
				}
				return fail(c, http.StatusConflict, "request is already in progress")
			}

			tee := &capture{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = tee
			if err := next(c); err != nil {
				c.Error(err)
			}

			// outlive a client that hung up mid-request
			wctx, wcancel := context.WithTimeout(context.WithoutCancel(req.Context()), storeTimeout)
			defer wcancel()
			if tee.status >= http.StatusInternalServerError {
				if err := store.release(wctx, key); err != nil {
					logger.Warn("idempotency reservation not released", zap.String("key", key), zap.Error(err))
				}
				return nil
			}
			done := replayRecord{Status: tee.status, Body: tee.buf.Bytes(), BodyHash: hash, RequestAt: reqAt, StoredAt: nowUTC()}
			if err := store.finish(wctx, key, done); err != nil {
				logger.Warn("idempotency record not saved", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}
