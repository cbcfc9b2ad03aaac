package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

func sha256Hex(b []byte) string { s := sha256.Sum256(b); return hex.EncodeToString(s[:]) }

func nowUTC() time.Time { return time.Now().UTC() }

// idempotencyKey scopes a request id to one admin and one route. Subjects
// are free-form, so they are hashed to keep the key delimiter-safe.
func idempotencyKey(method, route, subject, requestID string) string {
	return "idemp:ncd:" + strings.ToLower(method) + ":" + route + ":" + sha256Hex([]byte(subject))[:16] + ":" + requestID
}

var reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

// validRequestID accepts a canonical RFC 4122 UUID (versions 1-5) or 32 hex
// chars, case-insensitively.
func validRequestID(id string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	if reHex32.MatchString(id) {
		return true
	}
	if len(id) != 36 {
		return false
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return u.Variant() == uuid.RFC4122 && u.Version() >= 1 && u.Version() <= 5
}

// parseRequestAt reads Ax-Request-At: epoch seconds, epoch milliseconds, or
// RFC3339 with an explicit zone. Zone-less timestamps are rejected.
func parseRequestAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing Ax-Request-At")
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errors.New("Ax-Request-At must be epoch (s/ms) or RFC3339 with timezone")
}
