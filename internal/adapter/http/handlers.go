package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ncd-admin-backend/internal/state"

	"github.com/labstack/echo/v4"
)

const sseHeartbeat = 25 * time.Second

// StateSource exposes the dataset refresh counter and its event stream;
// *state.Store satisfies it.
type StateSource interface {
	Version() uint64
	Subscribe(buffer int) (<-chan state.RefreshEvent, func())
}

type Handler struct {
	state StateSource

	closing   chan struct{}
	closeOnce sync.Once
}

func NewHandler(st StateSource) *Handler {
	return &Handler{state: st, closing: make(chan struct{})}
}

// CloseStreams ends every open event stream. http.Server.Shutdown does not
// cancel in-flight requests, so it is registered with RegisterOnShutdown.
func (h *Handler) CloseStreams() {
	h.closeOnce.Do(func() { close(h.closing) })
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// StateVersion lets dashboards poll for changes made by other admins.
func (h *Handler) StateVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]uint64{"version": h.state.Version()})
}

// Events streams refresh events as server-sent events until the client
// goes away or CloseStreams is called.
func (h *Handler) Events(c echo.Context) error {
	events, cancel := h.state.Subscribe(8)
	defer cancel()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.closing:
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			raw, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: refresh\ndata: %s\n\n", raw); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
