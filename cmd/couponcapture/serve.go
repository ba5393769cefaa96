package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/auth"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/db"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/handler"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/scheduler"
)

func serve(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg
	logger := a.logger

	loc, err := time.LoadLocation(cfg.Cron.Timezone)
	if err != nil {
		logger.Warn("invalid cron timezone, using UTC", zap.String("timezone", cfg.Cron.Timezone), zap.Error(err))
		loc = time.UTC
	}
	sched := scheduler.New(scheduler.Config{
		ExpirationSpec:   cfg.Cron.ExpirationSpec,
		VerificationSpec: cfg.Cron.VerificationSpec,
		RetentionDays:    cfg.Capture.SyncLogRetentionDays,
		LeaseTTL:         cfg.Redis.LeaseTTL,
		Location:         loc,
	}, a.capture, a.settings, logger, ctx)
	sched.Cleaner = a.ledger
	sched.Locker = a.locker()
	sched.Metrics = a.metrics
	sched.Events = a.events
	if cfg.Cron.Enabled {
		if err := sched.StartAll(ctx); err != nil {
			logger.Warn("scheduler start incomplete", zap.Error(err))
		}
	}
	defer sched.Shutdown()

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	checks := map[string]handler.Pinger{}
	if a.db != nil {
		checks["db"] = func(ctx context.Context) error { return db.PingContext(ctx, a.db, 0) }
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}
	healthHandler := &handler.HealthHandler{Checks: checks}
	healthHandler.Register(engine)

	jwt := auth.JWT{Secret: []byte(cfg.Auth.JWTSecret), TokenTTL: cfg.Auth.TokenTTL}
	if !jwt.Enabled() {
		logger.Warn("auth.jwt_secret empty, admin API is unauthenticated")
	}
	guard := auth.RequireRole(jwt, cfg.Auth.AdminRole)

	captureHandler := &handler.CouponCaptureHandler{
		Capture:   a.capture,
		Scheduler: sched,
		Settings:  a.settings,
		Ledger:    a.ledger,
		Logger:    logger,
		Guard:     guard,
	}
	captureHandler.Register(engine)
	eventsHandler := &handler.EventsHandler{Events: a.events, Logger: logger, Guard: guard}
	eventsHandler.Register(engine)

	if a.metrics != nil {
		engine.GET(cfg.Metrics.Path, gin.WrapH(a.metrics.Handler()))
	}
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
