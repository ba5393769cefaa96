package models

import "time"

const (
	MinCaptureIntervalMinutes = 1
	MaxCaptureIntervalMinutes = 1440
)

// CouponSettings is a singleton row (ID=1) controlling capture.
type CouponSettings struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	AutoCaptureEnabled     bool `gorm:"not null" json:"auto_capture_enabled"`
	CaptureIntervalMinutes int  `gorm:"not null" json:"capture_interval_minutes"`

	ShopeeEnabled     bool `gorm:"not null" json:"shopee_enabled"`
	MeliEnabled       bool `gorm:"not null" json:"meli_enabled"`
	AmazonEnabled     bool `gorm:"not null" json:"amazon_enabled"`
	AliExpressEnabled bool `gorm:"not null" json:"aliexpress_enabled"`
	GatryEnabled      bool `gorm:"not null" json:"gatry_enabled"`

	NotifyOnNewCoupon     bool `gorm:"not null" json:"notify_on_new_coupon"`
	NotifyOnExpiration    bool `gorm:"not null" json:"notify_on_expiration"`
	VerificationBatchSize int  `gorm:"not null" json:"verification_batch_size"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (CouponSettings) TableName() string {
	return "coupon_settings"
}

func DefaultCouponSettings() CouponSettings {
	return CouponSettings{
		ID:                     1,
		AutoCaptureEnabled:     true,
		CaptureIntervalMinutes: 10,
		ShopeeEnabled:          true,
		MeliEnabled:            true,
		AmazonEnabled:          false,
		AliExpressEnabled:      false,
		GatryEnabled:           true,
		NotifyOnNewCoupon:      true,
		NotifyOnExpiration:     true,
		VerificationBatchSize:  100,
	}
}

// PlatformEnabled reports the flag for a platform id; unknown ids are off.
func (s CouponSettings) PlatformEnabled(platform string) bool {
	switch platform {
	case PlatformShopee:
		return s.ShopeeEnabled
	case PlatformMercadoLivre:
		return s.MeliEnabled
	case PlatformAmazon:
		return s.AmazonEnabled
	case PlatformAliExpress:
		return s.AliExpressEnabled
	case PlatformGatry:
		return s.GatryEnabled
	default:
		return false
	}
}

// ActivePlatforms returns enabled platforms in capture order.
func (s CouponSettings) ActivePlatforms() []string {
	out := make([]string, 0, len(Platforms))
	for _, p := range Platforms {
		if s.PlatformEnabled(p) {
			out = append(out, p)
		}
	}
	return out
}

func ClampInterval(minutes int) int {
	if minutes < MinCaptureIntervalMinutes {
		return MinCaptureIntervalMinutes
	}
	if minutes > MaxCaptureIntervalMinutes {
		return MaxCaptureIntervalMinutes
	}
	return minutes
}
