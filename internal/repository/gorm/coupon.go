package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository"
)

func (s *Store) FindCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var item models.Coupon
	err := s.db.WithContext(ctx).Model(&models.Coupon{}).Where("code = ?", code).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) FindCouponByID(ctx context.Context, id string) (*models.Coupon, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Coupon
	err := s.db.WithContext(ctx).Model(&models.Coupon{}).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateCoupon(ctx context.Context, item *models.Coupon) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	err := s.db.WithContext(ctx).Create(item).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repository.ErrDuplicate
	}
	return err
}

func (s *Store) UpdateCoupon(ctx context.Context, id string, updates map[string]any) (*models.Coupon, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, repository.ErrNotFound
	}
	if len(updates) > 0 {
		if _, ok := updates["updated_at"]; !ok {
			updates["updated_at"] = time.Now().UTC()
		}
	}
	var item models.Coupon
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		if len(updates) > 0 {
			res := tx.Model(&models.Coupon{}).Where("id = ?", id).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repository.ErrNotFound
			}
		}
		return tx.Where("id = ?", id).First(&item).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListExpiredCoupons(ctx context.Context, now time.Time) ([]models.Coupon, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	var items []models.Coupon
	if err := s.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("is_active = ?", true).
		Where("valid_until IS NOT NULL").
		Where("valid_until < ?", now).
		Order("valid_until asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListActiveCoupons(ctx context.Context, limit int) ([]models.Coupon, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 100)
	var items []models.Coupon
	if err := s.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("is_active = ?", true).
		Where("is_pending_approval = ?", false).
		Order("last_verified_at asc nulls first").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListCouponsByIDs(ctx context.Context, ids []string) ([]models.Coupon, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	ids = cleanStrings(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.Coupon
	if err := s.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id IN ?", ids).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListCoupons(ctx context.Context, params repository.ListCouponsParams) ([]models.Coupon, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := couponFilters(s.db.WithContext(ctx).Model(&models.Coupon{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Coupon
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountCoupons(ctx context.Context, params repository.ListCouponsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := couponFilters(s.db.WithContext(ctx).Model(&models.Coupon{}), params)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) CountExpiringSoon(ctx context.Context, now time.Time, within time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("is_active = ?", true).
		Where("valid_until IS NOT NULL").
		Where("valid_until >= ?", now).
		Where("valid_until <= ?", now.Add(within)).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func couponFilters(query *gorm.DB, params repository.ListCouponsParams) *gorm.DB {
	if params.Platform != nil && strings.TrimSpace(*params.Platform) != "" {
		query = query.Where("platform = ?", strings.TrimSpace(*params.Platform))
	}
	if params.IsActive != nil {
		query = query.Where("is_active = ?", *params.IsActive)
	}
	if params.IsPendingApproval != nil {
		query = query.Where("is_pending_approval = ?", *params.IsPendingApproval)
	}
	if params.VerificationStatus != nil && strings.TrimSpace(*params.VerificationStatus) != "" {
		query = query.Where("verification_status = ?", strings.TrimSpace(*params.VerificationStatus))
	}
	if params.AutoCaptured != nil {
		query = query.Where("auto_captured = ?", *params.AutoCaptured)
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		pattern := "%" + strings.TrimSpace(*params.Search) + "%"
		query = query.Where("code ILIKE ? OR title ILIKE ?", pattern, pattern)
	}
	return query
}
