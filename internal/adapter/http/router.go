package http

import (
	"time"

	"ncd-admin-backend/internal/adapter/middleware"
	"ncd-admin-backend/internal/domain/permission"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deps struct {
	Base        *Handler
	Series      *SeriesHandler
	Investors   *InvestorHandler
	Audit       *AuditHandler
	Permissions *PermissionHandler

	Checker   middleware.Checker
	JWTSecret []byte
	// Redis backs the idempotency middleware; nil disables it.
	Redis    *redis.Client
	IdempTTL time.Duration
	Log      *zap.Logger
}

// Register mounts every route. /health stays public; the rest need a
// bearer token and a role allowed to act on the route's module.
func Register(e *echo.Echo, d Deps) {
	e.GET("/health", d.Base.Health)

	mw := []echo.MiddlewareFunc{middleware.JWTAuth(d.JWTSecret)}
	if d.Redis != nil {
		mw = append(mw, middleware.IdempotencyMiddleware(d.Redis, d.IdempTTL, d.Log))
	}
	g := e.Group("", mw...)

	can := func(module string, action permission.Action) echo.MiddlewareFunc {
		return middleware.Require(d.Checker, d.Log, module, action)
	}

	g.GET("/state/version", d.Base.StateVersion)
	g.GET("/state/events", d.Base.Events)

	s := d.Series
	g.GET("/series", s.List, can(permission.ModuleSeries, permission.ActionView))
	g.POST("/series", s.Create, can(permission.ModuleSeries, permission.ActionCreate))
	g.POST("/series/recalculate", s.Recalculate, can(permission.ModuleSeries, permission.ActionEdit))
	g.GET("/series/:id", s.Get, can(permission.ModuleSeries, permission.ActionView))
	g.PUT("/series/:id", s.Update, can(permission.ModuleSeries, permission.ActionEdit))
	g.DELETE("/series/:id", s.Delete, can(permission.ModuleSeries, permission.ActionDelete))
	g.POST("/series/:id/approve", s.Approve, can(permission.ModuleSeries, permission.ActionEdit))
	g.POST("/series/:id/reject", s.Reject, can(permission.ModuleSeries, permission.ActionEdit))
	g.GET("/series/:id/payouts", s.Payouts, can(permission.ModuleInterest, permission.ActionView))

	i := d.Investors
	g.GET("/investors", i.List, can(permission.ModuleInvestors, permission.ActionView))
	g.POST("/investors", i.Create, can(permission.ModuleInvestors, permission.ActionCreate))
	g.GET("/investors/:id", i.Get, can(permission.ModuleInvestors, permission.ActionView))
	g.PUT("/investors/:id", i.Update, can(permission.ModuleInvestors, permission.ActionEdit))
	g.DELETE("/investors/:id", i.Delete, can(permission.ModuleInvestors, permission.ActionDelete))
	g.POST("/investors/:id/investments", i.Invest, can(permission.ModuleInvestors, permission.ActionCreate))

	a := d.Audit
	g.GET("/audit", a.List, can(permission.ModuleAudit, permission.ActionView))
	g.GET("/audit/:logId", a.Get, can(permission.ModuleAudit, permission.ActionView))
	g.POST("/audit", a.Create, can(permission.ModuleAudit, permission.ActionCreate))

	p := d.Permissions
	g.GET("/permissions", p.Matrix, can(permission.ModulePermissions, permission.ActionView))
	g.PUT("/permissions", p.Toggle, can(permission.ModulePermissions, permission.ActionEdit))
}
