package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpadp "ncd-admin-backend/internal/adapter/http"
	mysqlrepo "ncd-admin-backend/internal/adapter/repository/mysql"
	"ncd-admin-backend/internal/config"
	"ncd-admin-backend/internal/infrastructure/cache"
	"ncd-admin-backend/internal/infrastructure/db"
	"ncd-admin-backend/internal/infrastructure/observability"
	"ncd-admin-backend/internal/infrastructure/resilience"
	"ncd-admin-backend/internal/state"
	auditUC "ncd-admin-backend/internal/usecase/audit"
	investorUC "ncd-admin-backend/internal/usecase/investor"
	"ncd-admin-backend/internal/usecase/payout"
	permUC "ncd-admin-backend/internal/usecase/permission"
	"ncd-admin-backend/internal/usecase/reconcile"
	seriesUC "ncd-admin-backend/internal/usecase/series"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := observability.NewLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// state: series + investors in redis
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis unavailable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	defer rdb.Close()
	kv := cache.NewKV(rdb, cfg.StateKeyPrefix)

	store := state.New(kv,
		state.WithBroadcaster(kv),
		state.WithObserver(metrics),
		state.WithLogger(logger.Named("state")),
	)
	if err := store.Bootstrap(ctx, cfg.DataVersion, state.DefaultSeed(time.Now())); err != nil {
		logger.Fatal("state bootstrap failed", zap.Error(err))
	}
	// audit log + permissions in sql
	gdb, err := db.OpenGorm(cfg)
	if err != nil {
		logger.Fatal("database unavailable", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	if err := mysqlrepo.Migrate(gdb); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}
	if err := mysqlrepo.SeedPermissions(ctx, gdb); err != nil {
		logger.Fatal("seed permissions failed", zap.Error(err))
	}

	auditBreaker := resilience.NewCircuitBreaker("audit-writes", resilience.DefaultBreakerConfig(), logger)
	audits := auditUC.NewUsecase(mysqlrepo.NewAuditRepository(gdb), logger.Named("audit"), metrics, cfg.AuditTimeout,
		auditUC.WithGuard(auditBreaker))
	perms := permUC.NewUsecase(mysqlrepo.NewPermissionRepository(gdb), audits)
	series := seriesUC.NewUsecase(store, audits)
	investors := investorUC.NewUsecase(store, audits)
	payouts := payout.NewUsecase(store, time.Now)

	rec := reconcile.New(store, cfg.ReconcileInterval,
		reconcile.WithLogger(logger.Named("reconcile")),
		reconcile.WithObserver(metrics),
	)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.RequestID(), observability.ZapLogger(logger, metrics), middleware.Recover())

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	base := httpadp.NewHandler(store)
	e.Server.RegisterOnShutdown(base.CloseStreams)
	httpadp.Register(e, httpadp.Deps{
		Base:        base,
		Series:      httpadp.NewSeriesHandler(series, payouts, logger),
		Investors:   httpadp.NewInvestorHandler(investors, logger),
		Audit:       httpadp.NewAuditHandler(audits, logger),
		Permissions: httpadp.NewPermissionHandler(perms, logger),
		Checker:     perms,
		JWTSecret:   []byte(cfg.JWTSecret),
		Redis:       rdb,
		IdempTTL:    cfg.IdempotencyTTL(),
		Log:         logger,
	})

	addr := ":" + cfg.AppPort
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rec.Start(gctx)
		return nil
	})
	g.Go(func() error {
		err := kv.Listen(gctx, state.RefreshChannel, func(p []byte) {
			if err := store.ApplyRemote(gctx, p); err != nil {
				logger.Warn("remote refresh failed", zap.Error(err))
			}
		})
		if err != nil && gctx.Err() == nil {
			logger.Warn("refresh listener stopped", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("stopped with error", zap.Error(err))
	}
	audits.Wait()
}
