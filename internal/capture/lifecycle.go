package capture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/events"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/ledger"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/platform"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/retry"
)

// PlatformAll tags ledger rows of sweeps that span every platform.
const PlatformAll = "all"

type ExpirationResult struct {
	Found       int   `json:"found"`
	Deactivated int   `json:"deactivated"`
	Errors      int   `json:"errors"`
	DurationMs  int64 `json:"duration_ms"`
}

type VerificationResult struct {
	Checked    int   `json:"checked"`
	Verified   int   `json:"verified"`
	Invalid    int   `json:"invalid"`
	Errors     int   `json:"errors"`
	DurationMs int64 `json:"duration_ms"`
}

type VerifyOutcome struct {
	Coupon models.Coupon         `json:"coupon"`
	Result platform.VerifyResult `json:"result"`
}

type Stats struct {
	Days            int                     `json:"days"`
	Overall         ledger.Stats            `json:"overall"`
	Platforms       map[string]ledger.Stats `json:"platforms"`
	ActiveCoupons   int64                   `json:"active_coupons"`
	PendingApproval int64                   `json:"pending_approval"`
	ExpiringSoon    int64                   `json:"expiring_soon"`
}

// CheckExpiredCoupons deactivates active coupons whose valid_until passed.
func (o *Orchestrator) CheckExpiredCoupons(ctx context.Context) (ExpirationResult, error) {
	start := o.now()
	var out ExpirationResult
	log := o.logger()

	run, err := o.Ledger.Create(ctx, PlatformAll, models.SyncTypeExpiration)
	if err != nil {
		log.Warn("expiration sync log create failed", zap.Error(err))
	}

	expired, err := retry.DoValue(ctx, func(ctx context.Context) ([]models.Coupon, error) {
		return o.Coupons.ListExpiredCoupons(ctx, start)
	}, o.Retry...)
	if err != nil {
		o.failRun(ctx, run, err)
		return out, fmt.Errorf("list expired coupons: %w", err)
	}
	out.Found = len(expired)

	cfg, err := o.settings(ctx)
	if err != nil {
		cfg = models.DefaultCouponSettings()
	}
	for _, c := range expired {
		updated, err := o.updateCoupon(ctx, c.ID, map[string]any{
			"is_active":           false,
			"verification_status": models.VerificationExpired,
		})
		if err != nil {
			out.Errors++
			log.Warn("expire coupon failed", zap.String("code", c.Code), zap.Error(err))
			continue
		}
		out.Deactivated++
		o.Events.Publish(events.Event{Type: events.TypeCouponExpired, Platform: c.Platform, Data: updated})
		if cfg.NotifyOnExpiration && o.Notifier != nil {
			if err := o.Notifier.NotifyExpiredCoupon(ctx, *updated); err != nil {
				log.Warn("expired coupon notification failed", zap.String("code", c.Code), zap.Error(err))
			}
		}
	}
	out.DurationMs = o.now().Sub(start).Milliseconds()
	o.Metrics.CouponsExpired(out.Deactivated)
	if run != nil {
		if err := o.Ledger.Complete(ctx, run.ID, ledger.Results{Found: out.Found, Expired: out.Deactivated, Errors: out.Errors}); err != nil {
			log.Warn("expiration sync log complete failed", zap.Error(err))
		}
	}
	log.Info("expiration sweep finished",
		zap.Int("found", out.Found),
		zap.Int("deactivated", out.Deactivated),
		zap.Int("errors", out.Errors),
	)
	return out, nil
}

// VerifyActiveCoupons re-checks the given ids, or a bounded batch of active
// coupons when ids is empty, against their source.
func (o *Orchestrator) VerifyActiveCoupons(ctx context.Context, ids []string) (VerificationResult, error) {
	start := o.now()
	var out VerificationResult
	log := o.logger()

	run, err := o.Ledger.Create(ctx, PlatformAll, models.SyncTypeVerification)
	if err != nil {
		log.Warn("verification sync log create failed", zap.Error(err))
	}

	var coupons []models.Coupon
	if len(ids) > 0 {
		coupons, err = retry.DoValue(ctx, func(ctx context.Context) ([]models.Coupon, error) {
			return o.Coupons.ListCouponsByIDs(ctx, ids)
		}, o.Retry...)
	} else {
		batch := o.VerificationBatch
		if cfg, cerr := o.settings(ctx); cerr == nil && cfg.VerificationBatchSize > 0 {
			batch = cfg.VerificationBatchSize
		}
		if batch <= 0 {
			batch = 100
		}
		coupons, err = retry.DoValue(ctx, func(ctx context.Context) ([]models.Coupon, error) {
			return o.Coupons.ListActiveCoupons(ctx, batch)
		}, o.Retry...)
	}
	if err != nil {
		o.failRun(ctx, run, err)
		return out, fmt.Errorf("load coupons to verify: %w", err)
	}

	for _, c := range coupons {
		out.Checked++
		res, err := o.verify(ctx, c)
		if err != nil {
			out.Errors++
			log.Warn("coupon verification failed", zap.String("code", c.Code), zap.String("platform", c.Platform), zap.Error(err))
			continue
		}
		if res.Result.Valid {
			out.Verified++
		} else {
			out.Invalid++
		}
	}
	out.DurationMs = o.now().Sub(start).Milliseconds()
	if run != nil {
		if err := o.Ledger.Complete(ctx, run.ID, ledger.Results{
			Found:   out.Checked,
			Updated: out.Verified + out.Invalid,
			Expired: out.Invalid,
			Errors:  out.Errors,
		}); err != nil {
			log.Warn("verification sync log complete failed", zap.Error(err))
		}
	}
	log.Info("verification sweep finished",
		zap.Int("checked", out.Checked),
		zap.Int("verified", out.Verified),
		zap.Int("invalid", out.Invalid),
		zap.Int("errors", out.Errors),
	)
	return out, nil
}

// VerifyCoupon re-checks a single coupon by id.
func (o *Orchestrator) VerifyCoupon(ctx context.Context, id string) (VerifyOutcome, error) {
	c, err := o.getCoupon(ctx, id)
	if err != nil {
		return VerifyOutcome{}, err
	}
	return o.verify(ctx, *c)
}

func (o *Orchestrator) verify(ctx context.Context, c models.Coupon) (VerifyOutcome, error) {
	adapter, err := o.Registry.Get(c.Platform)
	if err != nil {
		return VerifyOutcome{}, err
	}
	res, err := adapter.VerifyCoupon(ctx, c.Code)
	if err != nil {
		return VerifyOutcome{}, err
	}
	updates := map[string]any{
		"verification_status": models.VerificationActive,
		"last_verified_at":    o.now(),
	}
	if !res.Valid {
		updates["verification_status"] = models.VerificationInvalid
		updates["is_active"] = false
	}
	updated, err := o.updateCoupon(ctx, c.ID, updates)
	if err != nil {
		return VerifyOutcome{}, err
	}
	o.Metrics.CouponVerified(c.Platform, res.Valid)
	o.Events.Publish(events.Event{Type: events.TypeCouponVerified, Platform: c.Platform, Data: map[string]any{
		"id":      c.ID,
		"code":    c.Code,
		"valid":   res.Valid,
		"message": res.Message,
	}})
	return VerifyOutcome{Coupon: *updated, Result: res}, nil
}

func (o *Orchestrator) failRun(ctx context.Context, run *models.CouponSyncLog, cause error) {
	if run == nil {
		return
	}
	if err := o.Ledger.Fail(ctx, run.ID, cause.Error()); err != nil {
		o.logger().Warn("sync log fail update failed", zap.Error(err))
	}
}

// GetStats combines ledger aggregates with live catalog counts.
func (o *Orchestrator) GetStats(ctx context.Context, days int) (Stats, error) {
	if days <= 0 {
		days = 7
	}
	out := Stats{Days: days, Platforms: map[string]ledger.Stats{}}
	overall, err := o.Ledger.GetStats(ctx, "", days)
	if err != nil {
		return out, err
	}
	out.Overall = overall
	for _, name := range models.Platforms {
		st, err := o.Ledger.GetStats(ctx, name, days)
		if err != nil {
			return out, err
		}
		out.Platforms[name] = st
	}

	active, pending := true, true
	out.ActiveCoupons, err = o.countCoupons(ctx, repository.ListCouponsParams{IsActive: &active})
	if err != nil {
		return out, err
	}
	out.PendingApproval, err = o.countCoupons(ctx, repository.ListCouponsParams{IsPendingApproval: &pending})
	if err != nil {
		return out, err
	}
	window := o.ExpiringSoon
	if window <= 0 {
		window = 3 * 24 * time.Hour
	}
	out.ExpiringSoon, err = retry.DoValue(ctx, func(ctx context.Context) (int64, error) {
		return o.Coupons.CountExpiringSoon(ctx, o.now(), window)
	}, o.Retry...)
	if err != nil {
		return out, err
	}
	return out, nil
}

func (o *Orchestrator) countCoupons(ctx context.Context, params repository.ListCouponsParams) (int64, error) {
	return retry.DoValue(ctx, func(ctx context.Context) (int64, error) {
		return o.Coupons.CountCoupons(ctx, params)
	}, o.Retry...)
}

func (o *Orchestrator) ListCoupons(ctx context.Context, params repository.ListCouponsParams) ([]models.Coupon, int64, error) {
	items, err := retry.DoValue(ctx, func(ctx context.Context) ([]models.Coupon, error) {
		return o.Coupons.ListCoupons(ctx, params)
	}, o.Retry...)
	if err != nil {
		return nil, 0, err
	}
	total, err := o.countCoupons(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (o *Orchestrator) ExpireCoupon(ctx context.Context, id string) (models.Coupon, error) {
	return o.transition(ctx, id, map[string]any{
		"is_active":           false,
		"verification_status": models.VerificationExpired,
	})
}

func (o *Orchestrator) ReactivateCoupon(ctx context.Context, id string) (models.Coupon, error) {
	return o.transition(ctx, id, map[string]any{
		"is_active":           true,
		"verification_status": models.VerificationActive,
		"last_verified_at":    o.now(),
	})
}

// ApproveCoupon publishes a pending coupon and notifies like a new one.
func (o *Orchestrator) ApproveCoupon(ctx context.Context, id string) (models.Coupon, error) {
	current, err := o.getCoupon(ctx, id)
	if err != nil {
		return models.Coupon{}, err
	}
	if !current.IsPendingApproval {
		return *current, nil
	}
	updated, err := o.transition(ctx, id, map[string]any{"is_pending_approval": false})
	if err != nil {
		return updated, err
	}
	cfg, err := o.settings(ctx)
	if err != nil {
		cfg = models.DefaultCouponSettings()
	}
	o.notifyNew(ctx, updated, cfg, o.logger())
	return updated, nil
}

func (o *Orchestrator) RejectCoupon(ctx context.Context, id string) (models.Coupon, error) {
	return o.transition(ctx, id, map[string]any{
		"is_pending_approval": false,
		"is_active":           false,
		"verification_status": models.VerificationInvalid,
	})
}

func (o *Orchestrator) transition(ctx context.Context, id string, updates map[string]any) (models.Coupon, error) {
	if strings.TrimSpace(id) == "" {
		return models.Coupon{}, repository.ErrNotFound
	}
	updated, err := o.updateCoupon(ctx, id, updates)
	if err != nil {
		return models.Coupon{}, err
	}
	if updated == nil {
		return models.Coupon{}, repository.ErrNotFound
	}
	return *updated, nil
}

func (o *Orchestrator) getCoupon(ctx context.Context, id string) (*models.Coupon, error) {
	c, err := retry.DoValue(ctx, func(ctx context.Context) (*models.Coupon, error) {
		return o.Coupons.FindCouponByID(ctx, id)
	}, o.Retry...)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, repository.ErrNotFound
	}
	return c, nil
}
