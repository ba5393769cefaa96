package gormrepository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
)

func (s *Store) GetCouponSettings(ctx context.Context) (*models.CouponSettings, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CouponSettings
	err := s.db.WithContext(ctx).Model(&models.CouponSettings{}).Order("id asc").First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveCouponSettings(ctx context.Context, item *models.CouponSettings) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.ID == 0 {
		item.ID = 1
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"auto_capture_enabled",
			"capture_interval_minutes",
			"shopee_enabled",
			"meli_enabled",
			"amazon_enabled",
			"aliexpress_enabled",
			"gatry_enabled",
			"notify_on_new_coupon",
			"notify_on_expiration",
			"verification_batch_size",
			"updated_at",
		}),
	}).Create(item).Error
}
