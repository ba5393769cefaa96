package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/retry"
)

// Patch updates only the non-nil fields.
type Patch struct {
	AutoCaptureEnabled     *bool `json:"auto_capture_enabled"`
	CaptureIntervalMinutes *int  `json:"capture_interval_minutes"`
	ShopeeEnabled          *bool `json:"shopee_enabled"`
	MeliEnabled            *bool `json:"meli_enabled"`
	AmazonEnabled          *bool `json:"amazon_enabled"`
	AliExpressEnabled      *bool `json:"aliexpress_enabled"`
	GatryEnabled           *bool `json:"gatry_enabled"`
	NotifyOnNewCoupon      *bool `json:"notify_on_new_coupon"`
	NotifyOnExpiration     *bool `json:"notify_on_expiration"`
	VerificationBatchSize  *int  `json:"verification_batch_size"`
}

// SchedulingChanged reports whether applying the patch needs the capture
// job rescheduled.
func (p Patch) SchedulingChanged() bool {
	return p.AutoCaptureEnabled != nil || p.CaptureIntervalMinutes != nil
}

type Service struct {
	Repo     repository.SettingsRepository
	Defaults *models.CouponSettings
	Retry    []retry.Option
}

func (s *Service) defaults() models.CouponSettings {
	if s != nil && s.Defaults != nil {
		return *s.Defaults
	}
	return models.DefaultCouponSettings()
}

// EnsureDefaults writes the default row when none exists.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	existing, err := s.load(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	item := s.defaults()
	item.UpdatedAt = time.Now().UTC()
	return s.save(ctx, &item)
}

// Get falls back to defaults when storage is empty or unavailable.
func (s *Service) Get(ctx context.Context) (models.CouponSettings, error) {
	if s == nil || s.Repo == nil {
		return s.defaults(), nil
	}
	item, err := s.load(ctx)
	if err != nil {
		return s.defaults(), err
	}
	if item == nil {
		return s.defaults(), nil
	}
	item.CaptureIntervalMinutes = models.ClampInterval(item.CaptureIntervalMinutes)
	return *item, nil
}

func (s *Service) Update(ctx context.Context, patch Patch) (models.CouponSettings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return current, err
	}
	applyPatch(&current, patch)
	current.UpdatedAt = time.Now().UTC()
	if s == nil || s.Repo == nil {
		return current, nil
	}
	if err := s.save(ctx, &current); err != nil {
		return current, fmt.Errorf("save coupon settings: %w", err)
	}
	return current, nil
}

func (s *Service) ToggleAutoCapture(ctx context.Context) (models.CouponSettings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return current, err
	}
	next := !current.AutoCaptureEnabled
	return s.Update(ctx, Patch{AutoCaptureEnabled: &next})
}

func (s *Service) UpdateInterval(ctx context.Context, minutes int) (models.CouponSettings, error) {
	minutes = models.ClampInterval(minutes)
	return s.Update(ctx, Patch{CaptureIntervalMinutes: &minutes})
}

func (s *Service) GetActivePlatforms(ctx context.Context) ([]string, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return current.ActivePlatforms(), nil
}

func (s *Service) IsPlatformEnabled(ctx context.Context, platform string) bool {
	current, err := s.Get(ctx)
	if err != nil {
		return false
	}
	return current.PlatformEnabled(platform)
}

func (s *Service) load(ctx context.Context) (*models.CouponSettings, error) {
	return retry.DoValue(ctx, func(ctx context.Context) (*models.CouponSettings, error) {
		return s.Repo.GetCouponSettings(ctx)
	}, s.Retry...)
}

func (s *Service) save(ctx context.Context, item *models.CouponSettings) error {
	return retry.Do(ctx, func(ctx context.Context) error {
		return s.Repo.SaveCouponSettings(ctx, item)
	}, s.Retry...)
}

func applyPatch(c *models.CouponSettings, p Patch) {
	if p.AutoCaptureEnabled != nil {
		c.AutoCaptureEnabled = *p.AutoCaptureEnabled
	}
	if p.CaptureIntervalMinutes != nil {
		c.CaptureIntervalMinutes = models.ClampInterval(*p.CaptureIntervalMinutes)
	}
	if p.ShopeeEnabled != nil {
		c.ShopeeEnabled = *p.ShopeeEnabled
	}
	if p.MeliEnabled != nil {
		c.MeliEnabled = *p.MeliEnabled
	}
	if p.AmazonEnabled != nil {
		c.AmazonEnabled = *p.AmazonEnabled
	}
	if p.AliExpressEnabled != nil {
		c.AliExpressEnabled = *p.AliExpressEnabled
	}
	if p.GatryEnabled != nil {
		c.GatryEnabled = *p.GatryEnabled
	}
	if p.NotifyOnNewCoupon != nil {
		c.NotifyOnNewCoupon = *p.NotifyOnNewCoupon
	}
	if p.NotifyOnExpiration != nil {
		c.NotifyOnExpiration = *p.NotifyOnExpiration
	}
	if p.VerificationBatchSize != nil && *p.VerificationBatchSize > 0 {
		c.VerificationBatchSize = *p.VerificationBatchSize
	}
}
