package http

import (
	"net/http"
	"strconv"
	"time"

	domain "ncd-admin-backend/internal/domain/audit"
	"ncd-admin-backend/internal/usecase/audit"
	"ncd-admin-backend/pkg/dateparse"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

type AuditHandler struct {
	uc  *audit.Usecase
	log *zap.Logger
}

func NewAuditHandler(uc *audit.Usecase, log *zap.Logger) *AuditHandler {
	return &AuditHandler{uc: uc, log: log}
}

type createAuditReq struct {
	Action     string         `json:"action"     validate:"required,max=64"`
	Details    string         `json:"details"    validate:"max=2000"`
	EntityType string         `json:"entityType" validate:"omitempty,oneof=series investor permission"`
	EntityID   string         `json:"entityId"   validate:"max=64"`
	Changes    map[string]any `json:"changes"`
}

type getAuditReq struct {
	LogID string `param:"logId" validate:"required,hex32"`
}

// List supports entityType, entityId, action, since (a date) and limit.
func (h *AuditHandler) List(c echo.Context) error {
	f := domain.Filter{
		EntityType: c.QueryParam("entityType"),
		EntityID:   c.QueryParam("entityId"),
		Action:     c.QueryParam("action"),
		Limit:      defaultAuditLimit,
	}
	if raw := c.QueryParam("since"); raw != "" {
		t, ok := dateparse.Parse(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid since query param"})
		}
		f.Since = t.In(time.UTC)
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit query param"})
		}
		f.Limit = min(n, maxAuditLimit)
	}
	logs, err := h.uc.List(c.Request().Context(), f)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, logs)
}

func (h *AuditHandler) Get(c echo.Context) error {
	var req getAuditReq
	if err := bindAndValidate(c, &req); err != nil {
		return done(err)
	}
	l, err := h.uc.Get(c.Request().Context(), req.LogID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, l)
}

// Create records an entry on behalf of the calling admin, synchronously.
func (h *AuditHandler) Create(c echo.Context) error {
	var req createAuditReq
	if err := bindAndValidate(c, &req); err != nil {
		return done(err)
	}
	l, err := h.uc.Create(c.Request().Context(), actorOf(c), domain.Entry(req))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, l)
}
