package middleware

import (
	"context"
	"net/http"

	"ncd-admin-backend/internal/domain/permission"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Checker answers role/module/action questions; the permission use case
// satisfies it.
type Checker interface {
	Allowed(ctx context.Context, role, module string, action permission.Action) (bool, error)
}

// Require rejects callers whose role lacks action on module. It must run
// after JWTAuth.
func Require(checker Checker, log *zap.Logger, module string, action permission.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			admin, ok := AdminFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			}
			allowed, err := checker.Allowed(c.Request().Context(), admin.Role, module, action)
			if err != nil {
				log.Error("permission lookup failed",
					zap.String("role", admin.Role), zap.String("module", module), zap.Error(err))
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "permission check unavailable"})
			}
			if !allowed {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "you do not have permission to " + string(action) + " " + module})
			}
			return next(c)
		}
	}
}
