package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/capture"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/config"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/db"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/events"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/lease"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/ledger"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/logger"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/metrics"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/notify"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/platform"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/platform/feed"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository"
	gormrepository "github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository/gorm"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository/memory"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/retry"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/settings"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/validator"
)

// app holds every wired service; commands pick what they need.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	db       *db.DB
	redis    *lease.RedisLocker
	repo     repository.Repository
	settings *settings.Service
	ledger   *ledger.Ledger
	capture  *capture.Orchestrator
	events   *events.Broadcaster
	metrics  *metrics.Metrics
}

func loadConfig() (config.Config, error) {
	cfgPath := os.Getenv("CC_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("CC_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}
	return config.Load(cfgPath, envOnly)
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	a := &app{cfg: cfg, logger: log, events: events.NewBroadcaster()}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
	}

	if strings.TrimSpace(cfg.DB.DSN) == "" {
		log.Warn("db.dsn empty, using in-memory storage")
		a.repo = memory.New()
	} else {
		dbConn, err := db.Open(cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		a.db = dbConn
		if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
			log.Warn("failed to set timezone", zap.Error(err))
		}
		if err := db.AutoMigrate(dbConn); err != nil {
			a.close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
		a.repo = gormrepository.New(dbConn.Gorm)
	}

	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		a.redis = lease.NewRedisLocker(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, "")
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := a.redis.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable, task leases will fall back to local guards", zap.Error(err))
		}
		cancel()
	}

	retryOpts := []retry.Option{
		retry.WithPolicy(retry.Policy{
			MaxRetries:   cfg.Retry.MaxRetries,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		}),
		retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			log.Warn("transient failure, retrying", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
		}),
	}

	defaults := settingsDefaults(cfg.Capture)
	a.settings = &settings.Service{Repo: a.repo, Retry: retryOpts, Defaults: &defaults}
	if err := a.settings.EnsureDefaults(ctx); err != nil {
		log.Warn("init default coupon settings failed", zap.Error(err))
	}

	a.ledger = ledger.New(a.repo, log, retryOpts...)

	registry, err := buildRegistry(cfg, log, retryOpts)
	if err != nil {
		a.close()
		return nil, err
	}

	if active, err := a.settings.GetActivePlatforms(ctx); err == nil {
		if missing := unregisteredPlatforms(active, registry); len(missing) > 0 {
			log.Warn("enabled platforms have no feed configured, their captures will fail", zap.Strings("platforms", missing))
		}
	}

	var notifier notify.Notifier = notify.Nop{}
	if d := notify.NewDispatcher(cfg.Notify, log); d.Enabled() {
		notifier = d
	}

	a.capture = &capture.Orchestrator{
		Coupons:           a.repo,
		Ledger:            a.ledger,
		Settings:          a.settings,
		Registry:          registry,
		Validator:         validator.New(log),
		Notifier:          notifier,
		Events:            a.events,
		Metrics:           a.metrics,
		Logger:            log,
		Retry:             retryOpts,
		ExpiringSoon:      time.Duration(cfg.Capture.ExpiringSoonDays) * 24 * time.Hour,
		VerificationBatch: cfg.Capture.VerificationBatch,
	}
	return a, nil
}

// settingsDefaults seeds the first settings row from the capture config.
func settingsDefaults(cfg config.CaptureConfig) models.CouponSettings {
	out := models.DefaultCouponSettings()
	if cfg.DefaultIntervalMinute > 0 {
		out.CaptureIntervalMinutes = models.ClampInterval(cfg.DefaultIntervalMinute)
	}
	if cfg.VerificationBatch > 0 {
		out.VerificationBatchSize = cfg.VerificationBatch
	}
	return out
}

func unregisteredPlatforms(active []string, registry *platform.Registry) []string {
	var out []string
	for _, name := range active {
		if !registry.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

// buildRegistry creates one feed adapter per configured platform.
func buildRegistry(cfg config.Config, log *zap.Logger, retryOpts []retry.Option) (*platform.Registry, error) {
	names := make([]string, 0, len(cfg.Platforms))
	for name := range cfg.Platforms {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)

	adapters := make([]platform.Adapter, 0, len(names))
	for _, name := range names {
		pc := cfg.Platforms[name]
		if strings.TrimSpace(pc.BaseURL) == "" {
			log.Warn("platform has no base_url, skipped", zap.String("platform", name))
			continue
		}
		adapters = append(adapters, feed.New(name, pc, retryOpts...))
	}
	registry, err := platform.NewRegistry(adapters...)
	if err != nil {
		return nil, fmt.Errorf("platform registry: %w", err)
	}
	log.Info("platform adapters registered", zap.Strings("platforms", registry.Platforms()))
	return registry, nil
}

func (a *app) locker() lease.Locker {
	if a.redis == nil {
		return lease.Nop{}
	}
	return a.redis
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = db.Close(a.db)
	}
	_ = a.logger.Sync()
}
