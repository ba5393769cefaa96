package db

import (
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Coupon{},
		&models.CouponSyncLog{},
		&models.CouponSettings{},
	)
}
