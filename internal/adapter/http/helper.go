package http

import (
	"errors"
	"net/http"
	"strconv"

	"ncd-admin-backend/internal/adapter/middleware"
	"ncd-admin-backend/internal/domain/audit"

	"github.com/labstack/echo/v4"
)

// errResponded marks that bindAndValidate already wrote the response.
var errResponded = errors.New("response written")

// bindAndValidate decodes the body into req and runs the validator. On
// failure it writes a 400 or 422 and returns errResponded.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		_ = c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
		return errResponded
	}
	if err := c.Validate(req); err != nil {
		_ = c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
		return errResponded
	}
	return nil
}

// done converts errResponded back into a nil handler result.
func done(err error) error {
	if errors.Is(err, errResponded) {
		return nil
	}
	return err
}

func parseID(c echo.Context, name string) (int64, bool) {
	n, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || n <= 0 {
		_ = c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name + " path param"})
		return 0, false
	}
	return n, true
}

func actorOf(c echo.Context) audit.Actor {
	admin, _ := middleware.AdminFrom(c)
	return admin.Actor()
}
