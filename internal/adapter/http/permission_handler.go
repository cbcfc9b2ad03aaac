package http

import (
	"net/http"

	"ncd-admin-backend/internal/usecase/permission"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type PermissionHandler struct {
	uc  *permission.Usecase
	log *zap.Logger
}

func NewPermissionHandler(uc *permission.Usecase, log *zap.Logger) *PermissionHandler {
	return &PermissionHandler{uc: uc, log: log}
}

type togglePermissionReq struct {
	Role   string `json:"role"   validate:"required,max=64"`
	Module string `json:"module" validate:"required,max=64"`
	Action string `json:"action" validate:"required,oneof=view create edit delete"`
}

func (h *PermissionHandler) Matrix(c echo.Context) error {
	m, err := h.uc.Matrix(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Toggle flips one role/module/action flag and returns the new row.
func (h *PermissionHandler) Toggle(c echo.Context) error {
	var req togglePermissionReq
	if err := bindAndValidate(c, &req); err != nil {
		return done(err)
	}
	p, err := h.uc.Toggle(c.Request().Context(), actorOf(c), req.Role, req.Module, req.Action)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}
