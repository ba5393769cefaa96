// Package memory is a process-local repository.Repository used when no
// database DSN is configured and by package tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository"
)

type Store struct {
	mu       sync.Mutex
	coupons  map[string]models.Coupon
	byCode   map[string]string
	logs     map[string]models.CouponSyncLog
	settings *models.CouponSettings
}

func New() *Store {
	return &Store{
		coupons: map[string]models.Coupon{},
		byCode:  map[string]string{},
		logs:    map[string]models.CouponSyncLog{},
	}
}

func (s *Store) FindCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCode[strings.TrimSpace(code)]
	if !ok {
		return nil, nil
	}
	item := s.coupons[id]
	return &item, nil
}

func (s *Store) FindCouponByID(ctx context.Context, id string) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.coupons[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) CreateCoupon(ctx context.Context, item *models.Coupon) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byCode[item.Code]; ok {
		return repository.ErrDuplicate
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	s.coupons[item.ID] = *item
	s.byCode[item.Code] = item.ID
	return nil
}

func (s *Store) UpdateCoupon(ctx context.Context, id string, updates map[string]any) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.coupons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	applyCouponUpdates(&item, updates)
	if _, ok := updates["updated_at"]; !ok {
		item.UpdatedAt = time.Now().UTC()
	}
	s.coupons[id] = item
	return &item, nil
}

func (s *Store) ListExpiredCoupons(ctx context.Context, now time.Time) ([]models.Coupon, error) {
	return s.filterCoupons(func(c models.Coupon) bool {
		return c.IsActive && c.ValidUntil != nil && c.ValidUntil.Before(now)
	}), nil
}

func (s *Store) ListActiveCoupons(ctx context.Context, limit int) ([]models.Coupon, error) {
	items := s.filterCoupons(func(c models.Coupon) bool {
		return c.IsActive && !c.IsPendingApproval
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ListCouponsByIDs(ctx context.Context, ids []string) ([]models.Coupon, error) {
	want := map[string]struct{}{}
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return s.filterCoupons(func(c models.Coupon) bool {
		_, ok := want[c.ID]
		return ok
	}), nil
}

func (s *Store) ListCoupons(ctx context.Context, params repository.ListCouponsParams) ([]models.Coupon, error) {
	items := s.filterCoupons(func(c models.Coupon) bool { return matchCoupon(c, params) })
	return paginate(items, params.Offset, params.Limit), nil
}

func (s *Store) CountCoupons(ctx context.Context, params repository.ListCouponsParams) (int64, error) {
	items := s.filterCoupons(func(c models.Coupon) bool { return matchCoupon(c, params) })
	return int64(len(items)), nil
}

func (s *Store) CountExpiringSoon(ctx context.Context, now time.Time, within time.Duration) (int64, error) {
	limit := now.Add(within)
	items := s.filterCoupons(func(c models.Coupon) bool {
		return c.IsActive && c.ValidUntil != nil && !c.ValidUntil.Before(now) && !c.ValidUntil.After(limit)
	})
	return int64(len(items)), nil
}

func (s *Store) InsertSyncLog(ctx context.Context, item *models.CouponSyncLog) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.logs[item.ID] = *item
	return nil
}

func (s *Store) UpdateSyncLog(ctx context.Context, id string, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.logs[id]
	if !ok {
		return repository.ErrNotFound
	}
	applySyncLogUpdates(&item, updates)
	s.logs[id] = item
	return nil
}

func (s *Store) GetSyncLog(ctx context.Context, id string) (*models.CouponSyncLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.logs[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) ListSyncLogs(ctx context.Context, params repository.ListSyncLogsParams) ([]models.CouponSyncLog, error) {
	items := s.filterLogs(params)
	if params.Limit < 0 {
		return paginate(items, params.Offset, 0), nil
	}
	limit := params.Limit
	if limit == 0 {
		limit = 50
	}
	return paginate(items, params.Offset, limit), nil
}

func (s *Store) CountSyncLogs(ctx context.Context, params repository.ListSyncLogsParams) (int64, error) {
	return int64(len(s.filterLogs(params))), nil
}

func (s *Store) DeleteSyncLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, item := range s.logs {
		if item.StartedAt.Before(before) {
			delete(s.logs, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) GetCouponSettings(ctx context.Context) (*models.CouponSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return nil, nil
	}
	item := *s.settings
	return &item, nil
}

func (s *Store) SaveCouponSettings(ctx context.Context, item *models.CouponSettings) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	if cp.ID == 0 {
		cp.ID = 1
	}
	cp.UpdatedAt = time.Now().UTC()
	s.settings = &cp
	return nil
}

// Coupons returns every stored coupon ordered by creation.
func (s *Store) Coupons() []models.Coupon {
	return s.filterCoupons(func(models.Coupon) bool { return true })
}

func (s *Store) filterCoupons(keep func(models.Coupon) bool) []models.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Coupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) filterLogs(params repository.ListSyncLogsParams) []models.CouponSyncLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CouponSyncLog, 0, len(s.logs))
	for _, item := range s.logs {
		if params.Platform != nil && item.Platform != *params.Platform {
			continue
		}
		if params.SyncType != nil && item.SyncType != *params.SyncType {
			continue
		}
		if params.Status != nil && item.Status != *params.Status {
			continue
		}
		if params.Since != nil && item.StartedAt.Before(*params.Since) {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

func matchCoupon(c models.Coupon, p repository.ListCouponsParams) bool {
	if p.Platform != nil && c.Platform != *p.Platform {
		return false
	}
	if p.IsActive != nil && c.IsActive != *p.IsActive {
		return false
	}
	if p.IsPendingApproval != nil && c.IsPendingApproval != *p.IsPendingApproval {
		return false
	}
	if p.VerificationStatus != nil && c.VerificationStatus != *p.VerificationStatus {
		return false
	}
	if p.AutoCaptured != nil && c.AutoCaptured != *p.AutoCaptured {
		return false
	}
	if p.Search != nil {
		q := strings.ToLower(*p.Search)
		if !strings.Contains(strings.ToLower(c.Code), q) && !strings.Contains(strings.ToLower(c.Title), q) {
			return false
		}
	}
	return true
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func applyCouponUpdates(c *models.Coupon, updates map[string]any) {
	for key, val := range updates {
		switch key {
		case "platform":
			c.Platform, _ = val.(string)
		case "title":
			c.Title, _ = val.(string)
		case "description":
			c.Description, _ = val.(string)
		case "discount_type":
			c.DiscountType, _ = val.(string)
		case "discount_value":
			c.DiscountValue, _ = val.(decimal.Decimal)
		case "min_purchase":
			c.MinPurchase, _ = val.(decimal.Decimal)
		case "max_discount_value":
			c.MaxDiscountValue, _ = val.(decimal.NullDecimal)
		case "is_general":
			c.IsGeneral, _ = val.(bool)
		case "applicable_products":
			c.ApplicableProducts, _ = val.(datatypes.JSONSlice[string])
		case "valid_from":
			c.ValidFrom, _ = val.(time.Time)
		case "valid_until":
			c.ValidUntil, _ = val.(*time.Time)
		case "last_verified_at":
			c.LastVerifiedAt = timePtr(val)
		case "auto_captured":
			c.AutoCaptured, _ = val.(bool)
		case "is_pending_approval":
			c.IsPendingApproval, _ = val.(bool)
		case "is_active":
			c.IsActive, _ = val.(bool)
		case "verification_status":
			c.VerificationStatus, _ = val.(string)
		case "source_url":
			c.SourceURL, _ = val.(string)
		case "affiliate_link":
			c.AffiliateLink, _ = val.(string)
		case "campaign_id":
			c.CampaignID, _ = val.(string)
		case "campaign_name":
			c.CampaignName, _ = val.(string)
		case "capture_source":
			c.CaptureSource, _ = val.(string)
		case "updated_at":
			if t := timePtr(val); t != nil {
				c.UpdatedAt = *t
			}
		}
	}
}

func applySyncLogUpdates(l *models.CouponSyncLog, updates map[string]any) {
	for key, val := range updates {
		switch key {
		case "status":
			l.Status, _ = val.(string)
		case "completed_at":
			l.CompletedAt = timePtr(val)
		case "duration_ms":
			l.DurationMs, _ = val.(int64)
		case "coupons_found":
			l.CouponsFound, _ = val.(int)
		case "coupons_created":
			l.CouponsCreated, _ = val.(int)
		case "coupons_updated":
			l.CouponsUpdated, _ = val.(int)
		case "coupons_expired":
			l.CouponsExpired, _ = val.(int)
		case "errors":
			l.Errors, _ = val.(int)
		case "error_details":
			if v, ok := val.(string); ok {
				l.ErrorDetails = &v
			}
		}
	}
}

func timePtr(val any) *time.Time {
	switch v := val.(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	default:
		return nil
	}
}

var _ repository.Repository = (*Store)(nil)
