// Package capture pulls candidates from every enabled source, validates
// them, merges them into the catalog keyed by code and records each run in
// the sync ledger.
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/events"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/ledger"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/metrics"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/notify"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/platform"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/retry"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/validator"
)

var ErrUnknownPlatform = platform.ErrUnknownPlatform

type SettingsReader interface {
	Get(ctx context.Context) (models.CouponSettings, error)
}

type PlatformResult struct {
	Platform  string `json:"platform"`
	SyncLogID string `json:"sync_log_id,omitempty"`
	Found     int    `json:"found"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Rejected  int    `json:"rejected"`
	Errors    int    `json:"errors"`
	Error     string `json:"error,omitempty"`
}

type CaptureAllResult struct {
	Success      bool             `json:"success"`
	Message      string           `json:"message,omitempty"`
	TotalFound   int              `json:"total_found"`
	TotalCreated int              `json:"total_created"`
	TotalUpdated int              `json:"total_updated"`
	TotalErrors  int              `json:"total_errors"`
	Platforms    []PlatformResult `json:"platforms"`
	DurationMs   int64            `json:"duration_ms"`
}

type Orchestrator struct {
	Coupons   repository.CouponRepository
	Ledger    *ledger.Ledger
	Settings  SettingsReader
	Registry  *platform.Registry
	Validator *validator.Validator
	Notifier  notify.Notifier
	Events    *events.Broadcaster
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Retry     []retry.Option

	// ExpiringSoon is the window reported by GetStats.
	ExpiringSoon time.Duration
	// VerificationBatch caps a sweep without explicit ids.
	VerificationBatch int

	Now   func() time.Time
	NewID func() string
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) newID() string {
	if o.NewID != nil {
		return o.NewID()
	}
	return uuid.NewString()
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *Orchestrator) settings(ctx context.Context) (models.CouponSettings, error) {
	if o.Settings == nil {
		return models.DefaultCouponSettings(), nil
	}
	return o.Settings.Get(ctx)
}

// CaptureAll walks enabled platforms one at a time so sources are never hit
// concurrently and two platforms never race on the same code.
func (o *Orchestrator) CaptureAll(ctx context.Context) (CaptureAllResult, error) {
	start := o.now()
	cfg, err := o.settings(ctx)
	if err != nil {
		return CaptureAllResult{}, fmt.Errorf("load capture settings: %w", err)
	}
	if !cfg.AutoCaptureEnabled {
		return CaptureAllResult{Success: false, Message: "auto capture is disabled", Platforms: []PlatformResult{}}, nil
	}

	out := CaptureAllResult{Success: true, Platforms: make([]PlatformResult, 0, len(models.Platforms))}
	for _, name := range cfg.ActivePlatforms() {
		res, err := o.capturePlatform(ctx, name, cfg)
		if err != nil {
			res = o.recordSkipped(ctx, name, err)
		}
		out.Platforms = append(out.Platforms, res)
		out.TotalFound += res.Found
		out.TotalCreated += res.Created
		out.TotalUpdated += res.Updated
		out.TotalErrors += res.Errors
	}
	out.DurationMs = o.now().Sub(start).Milliseconds()
	o.logger().Info("capture finished",
		zap.Int("platforms", len(out.Platforms)),
		zap.Int("found", out.TotalFound),
		zap.Int("created", out.TotalCreated),
		zap.Int("updated", out.TotalUpdated),
		zap.Int("errors", out.TotalErrors),
		zap.Int64("duration_ms", out.DurationMs),
	)
	return out, nil
}

// CapturePlatform runs one platform regardless of its enable flag. The
// error is non-nil only when the platform has no adapter.
func (o *Orchestrator) CapturePlatform(ctx context.Context, name string) (PlatformResult, error) {
	cfg, err := o.settings(ctx)
	if err != nil {
		o.logger().Warn("capture settings unavailable, using defaults", zap.Error(err))
		cfg = models.DefaultCouponSettings()
	}
	return o.capturePlatform(ctx, name, cfg)
}

func (o *Orchestrator) capturePlatform(ctx context.Context, name string, cfg models.CouponSettings) (PlatformResult, error) {
	adapter, err := o.Registry.Get(name)
	if err != nil {
		return PlatformResult{Platform: name}, err
	}
	log := o.logger().With(zap.String("platform", name))

	run, err := o.Ledger.Create(ctx, name, models.SyncTypeCapture)
	if err != nil {
		log.Error("sync log create failed", zap.Error(err))
		o.Metrics.ObserveRun(name, models.SyncStatusFailed)
		return PlatformResult{Platform: name, Errors: 1, Error: err.Error()}, nil
	}
	o.Events.Publish(events.Event{Type: events.TypeRunStarted, Platform: name, Data: map[string]any{"sync_log_id": run.ID}})

	res, runErr := o.runPlatform(ctx, adapter, cfg, log)
	res.Platform = name
	res.SyncLogID = run.ID

	if runErr != nil {
		log.Warn("platform capture failed", zap.Error(runErr))
		if err := o.Ledger.Fail(ctx, run.ID, runErr.Error()); err != nil {
			log.Error("sync log fail update failed", zap.Error(err))
		}
		o.Metrics.ObserveRun(name, models.SyncStatusFailed)
		o.Events.Publish(events.Event{Type: events.TypeRunFailed, Platform: name, Data: map[string]any{"sync_log_id": run.ID, "error": runErr.Error()}})
		return PlatformResult{Platform: name, SyncLogID: run.ID, Errors: 1, Error: runErr.Error()}, nil
	}

	if err := o.Ledger.Complete(ctx, run.ID, ledger.Results{
		Found:   res.Found,
		Created: res.Created,
		Updated: res.Updated,
		Errors:  res.Errors,
	}); err != nil {
		log.Error("sync log complete failed", zap.Error(err))
	}
	o.Metrics.ObserveRun(name, models.SyncStatusCompleted)
	o.Metrics.AddCoupons(name, "found", res.Found)
	o.Metrics.AddCoupons(name, "created", res.Created)
	o.Metrics.AddCoupons(name, "updated", res.Updated)
	o.Metrics.AddCoupons(name, "rejected", res.Rejected)
	o.Events.Publish(events.Event{Type: events.TypeRunCompleted, Platform: name, Data: res})
	log.Info("platform capture completed",
		zap.Int("found", res.Found),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("rejected", res.Rejected),
	)
	return res, nil
}

// recordSkipped leaves a failed sync run for an enabled platform that could
// not be captured at all, so the gap shows up next to the real runs.
func (o *Orchestrator) recordSkipped(ctx context.Context, name string, cause error) PlatformResult {
	log := o.logger().With(zap.String("platform", name))
	log.Warn("platform capture skipped", zap.Error(cause))
	res := PlatformResult{Platform: name, Errors: 1, Error: cause.Error()}
	o.Metrics.ObserveRun(name, models.SyncStatusFailed)

	run, err := o.Ledger.Create(ctx, name, models.SyncTypeCapture)
	if err != nil {
		log.Error("sync log create failed", zap.Error(err))
		return res
	}
	res.SyncLogID = run.ID
	if err := o.Ledger.Fail(ctx, run.ID, cause.Error()); err != nil {
		log.Error("sync log fail update failed", zap.Error(err))
	}
	return res
}

func (o *Orchestrator) runPlatform(ctx context.Context, adapter platform.Adapter, cfg models.CouponSettings, log *zap.Logger) (res PlatformResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during capture: %v", r)
		}
	}()

	candidates, err := adapter.CaptureCoupons(ctx)
	if err != nil {
		return res, err
	}
	res.Found = len(candidates)

	valid, rejected := o.Validator.FilterValidCoupons(candidates)
	res.Rejected = len(rejected)

	for _, c := range valid {
		if c.Platform == "" {
			c.Platform = adapter.Platform()
		}
		saved, err := o.SaveCoupon(ctx, c)
		if err != nil {
			return res, fmt.Errorf("save coupon %s: %w", c.Code, err)
		}
		switch saved.Action {
		case ActionCreated:
			res.Created++
		case ActionUpdated, ActionPromoted:
			res.Updated++
		}
		if saved.ShouldNotify() {
			o.notifyNew(ctx, saved.Coupon, cfg, log)
		}
	}
	return res, nil
}

func (o *Orchestrator) notifyNew(ctx context.Context, c models.Coupon, cfg models.CouponSettings, log *zap.Logger) {
	o.Events.Publish(events.Event{Type: events.TypeCouponCreated, Platform: c.Platform, Data: c})
	if o.Notifier == nil || !cfg.NotifyOnNewCoupon {
		return
	}
	if err := o.Notifier.NotifyNewCoupon(ctx, c); err != nil {
		log.Warn("new coupon notification failed", zap.String("code", c.Code), zap.Error(err))
	}
}
