package repository

import (
	"context"
	"errors"
	"time"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type CouponRepository interface {
	FindCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindCouponByID(ctx context.Context, id string) (*models.Coupon, error)
	CreateCoupon(ctx context.Context, item *models.Coupon) error
	UpdateCoupon(ctx context.Context, id string, updates map[string]any) (*models.Coupon, error)
	ListExpiredCoupons(ctx context.Context, now time.Time) ([]models.Coupon, error)
	ListActiveCoupons(ctx context.Context, limit int) ([]models.Coupon, error)
	ListCouponsByIDs(ctx context.Context, ids []string) ([]models.Coupon, error)
	ListCoupons(ctx context.Context, params ListCouponsParams) ([]models.Coupon, error)
	CountCoupons(ctx context.Context, params ListCouponsParams) (int64, error)
	CountExpiringSoon(ctx context.Context, now time.Time, within time.Duration) (int64, error)
}

type SyncLogRepository interface {
	InsertSyncLog(ctx context.Context, item *models.CouponSyncLog) error
	UpdateSyncLog(ctx context.Context, id string, updates map[string]any) error
	GetSyncLog(ctx context.Context, id string) (*models.CouponSyncLog, error)
	ListSyncLogs(ctx context.Context, params ListSyncLogsParams) ([]models.CouponSyncLog, error)
	CountSyncLogs(ctx context.Context, params ListSyncLogsParams) (int64, error)
	DeleteSyncLogsBefore(ctx context.Context, before time.Time) (int64, error)
}

type SettingsRepository interface {
	GetCouponSettings(ctx context.Context) (*models.CouponSettings, error)
	SaveCouponSettings(ctx context.Context, item *models.CouponSettings) error
}

// Repository is the full storage surface the service binary wires.
type Repository interface {
	CouponRepository
	SyncLogRepository
	SettingsRepository
}

type ListCouponsParams struct {
	Limit   int
	Offset  int
	OrderBy string
	Asc     *bool

	Platform           *string
	IsActive           *bool
	IsPendingApproval  *bool
	VerificationStatus *string
	AutoCaptured       *bool
	Search             *string
}

type ListSyncLogsParams struct {
	Limit   int
	Offset  int
	OrderBy string
	Asc     *bool

	Platform *string
	SyncType *string
	Status   *string
	Since    *time.Time
}
