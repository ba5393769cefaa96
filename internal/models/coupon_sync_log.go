package models

import "time"

const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

const (
	SyncTypeCapture      = "capture"
	SyncTypeExpiration   = "expiration"
	SyncTypeVerification = "verification"
)

// CouponSyncLog is one ledger row per platform execution.
type CouponSyncLog struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Platform    string     `gorm:"type:varchar(30);not null;index" json:"platform"`
	SyncType    string     `gorm:"type:varchar(30);not null;default:'capture'" json:"sync_type"`
	Status      string     `gorm:"type:varchar(20);not null;index" json:"status"`
	StartedAt   time.Time  `gorm:"type:timestamptz;not null;index" json:"started_at"`
	CompletedAt *time.Time `gorm:"type:timestamptz" json:"completed_at,omitempty"`
	DurationMs  int64      `gorm:"not null;default:0" json:"duration_ms"`

	CouponsFound   int     `gorm:"not null;default:0" json:"coupons_found"`
	CouponsCreated int     `gorm:"not null;default:0" json:"coupons_created"`
	CouponsUpdated int     `gorm:"not null;default:0" json:"coupons_updated"`
	CouponsExpired int     `gorm:"not null;default:0" json:"coupons_expired"`
	Errors         int     `gorm:"not null;default:0" json:"errors"`
	ErrorDetails   *string `gorm:"type:text" json:"error_details,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (CouponSyncLog) TableName() string {
	return "coupon_sync_logs"
}
