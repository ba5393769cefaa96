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

func (s *Store) InsertSyncLog(ctx context.Context, item *models.CouponSyncLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateSyncLog(ctx context.Context, id string, updates map[string]any) error {
	if s == nil || s.db == nil {
		return nil
	}
	id = strings.TrimSpace(id)
	if id == "" || len(updates) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.CouponSyncLog{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) GetSyncLog(ctx context.Context, id string) (*models.CouponSyncLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CouponSyncLog
	err := s.db.WithContext(ctx).Model(&models.CouponSyncLog{}).Where("id = ?", strings.TrimSpace(id)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSyncLogs(ctx context.Context, params repository.ListSyncLogsParams) ([]models.CouponSyncLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := syncLogFilters(s.db.WithContext(ctx).Model(&models.CouponSyncLog{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "started_at")
	// Stats scans a whole window, so a negative limit lifts the page cap.
	if params.Limit >= 0 {
		query = query.Limit(normalizeLimit(params.Limit, 50))
	}
	var items []models.CouponSyncLog
	if err := query.Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSyncLogs(ctx context.Context, params repository.ListSyncLogsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := syncLogFilters(s.db.WithContext(ctx).Model(&models.CouponSyncLog{}), params)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) DeleteSyncLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("started_at < ?", before).
		Delete(&models.CouponSyncLog{})
	return res.RowsAffected, res.Error
}

func syncLogFilters(query *gorm.DB, params repository.ListSyncLogsParams) *gorm.DB {
	if params.Platform != nil && strings.TrimSpace(*params.Platform) != "" {
		query = query.Where("platform = ?", strings.TrimSpace(*params.Platform))
	}
	if params.SyncType != nil && strings.TrimSpace(*params.SyncType) != "" {
		query = query.Where("sync_type = ?", strings.TrimSpace(*params.SyncType))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("started_at >= ?", *params.Since)
	}
	return query
}
