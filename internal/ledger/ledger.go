package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/retry"
)

const DefaultRetentionDays = 30

// Results are the final counters of a finished run.
type Results struct {
	Found   int
	Created int
	Updated int
	Expired int
	Errors  int
}

type Filters struct {
	Platform string
	SyncType string
	Status   string
}

type Page struct {
	Logs       []models.CouponSyncLog `json:"logs"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"total_pages"`
}

type Stats struct {
	Platform          string  `json:"platform,omitempty"`
	Days              int     `json:"days"`
	TotalSyncs        int     `json:"total_syncs"`
	Successful        int     `json:"successful"`
	Failed            int     `json:"failed"`
	Running           int     `json:"running"`
	TotalCouponsFound int     `json:"total_coupons_found"`
	TotalCreated      int     `json:"total_coupons_created"`
	TotalUpdated      int     `json:"total_coupons_updated"`
	TotalExpired      int     `json:"total_coupons_expired"`
	TotalErrors       int     `json:"total_errors"`
	AvgDurationMs     float64 `json:"avg_duration_ms"`
}

type Ledger struct {
	Repo   repository.SyncLogRepository
	Logger *zap.Logger
	Retry  []retry.Option
	Now    func() time.Time
	NewID  func() string
}

func New(repo repository.SyncLogRepository, logger *zap.Logger, retryOpts ...retry.Option) *Ledger {
	return &Ledger{Repo: repo, Logger: logger, Retry: retryOpts}
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *Ledger) newID() string {
	if l.NewID != nil {
		return l.NewID()
	}
	return uuid.NewString()
}

func (l *Ledger) Create(ctx context.Context, platform, syncType string) (*models.CouponSyncLog, error) {
	if l == nil || l.Repo == nil {
		return nil, fmt.Errorf("ledger unavailable")
	}
	if strings.TrimSpace(syncType) == "" {
		syncType = models.SyncTypeCapture
	}
	item := &models.CouponSyncLog{
		ID:        l.newID(),
		Platform:  platform,
		SyncType:  syncType,
		Status:    models.SyncStatusRunning,
		StartedAt: l.now(),
	}
	err := retry.Do(ctx, func(ctx context.Context) error {
		return l.Repo.InsertSyncLog(ctx, item)
	}, l.Retry...)
	if err != nil {
		return nil, fmt.Errorf("create sync log: %w", err)
	}
	return item, nil
}

func (l *Ledger) Complete(ctx context.Context, id string, res Results) error {
	if l == nil || l.Repo == nil {
		return fmt.Errorf("ledger unavailable")
	}
	now := l.now()
	updates := map[string]any{
		"status":          models.SyncStatusCompleted,
		"completed_at":    now,
		"duration_ms":     l.durationMs(ctx, id, now),
		"coupons_found":   res.Found,
		"coupons_created": res.Created,
		"coupons_updated": res.Updated,
		"coupons_expired": res.Expired,
		"errors":          res.Errors,
	}
	err := retry.Do(ctx, func(ctx context.Context) error {
		return l.Repo.UpdateSyncLog(ctx, id, updates)
	}, l.Retry...)
	if err != nil {
		return fmt.Errorf("complete sync log %s: %w", id, err)
	}
	return nil
}

func (l *Ledger) Fail(ctx context.Context, id string, detail string) error {
	if l == nil || l.Repo == nil {
		return fmt.Errorf("ledger unavailable")
	}
	now := l.now()
	updates := map[string]any{
		"status":        models.SyncStatusFailed,
		"completed_at":  now,
		"duration_ms":   l.durationMs(ctx, id, now),
		"errors":        1,
		"error_details": detail,
	}
	err := retry.Do(ctx, func(ctx context.Context) error {
		return l.Repo.UpdateSyncLog(ctx, id, updates)
	}, l.Retry...)
	if err != nil {
		return fmt.Errorf("fail sync log %s: %w", id, err)
	}
	return nil
}

func (l *Ledger) durationMs(ctx context.Context, id string, now time.Time) int64 {
	item, err := retry.DoValue(ctx, func(ctx context.Context) (*models.CouponSyncLog, error) {
		return l.Repo.GetSyncLog(ctx, id)
	}, l.Retry...)
	if err != nil || item == nil {
		if err != nil && l.Logger != nil {
			l.Logger.Warn("sync log lookup failed", zap.String("id", id), zap.Error(err))
		}
		return 0
	}
	d := now.Sub(item.StartedAt).Milliseconds()
	if d < 0 {
		return 0
	}
	return d
}

func (l *Ledger) FindByPlatform(ctx context.Context, platform string, limit int) ([]models.CouponSyncLog, error) {
	if l == nil || l.Repo == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	params := repository.ListSyncLogsParams{Limit: limit, Platform: &platform, OrderBy: "started_at"}
	return retry.DoValue(ctx, func(ctx context.Context) ([]models.CouponSyncLog, error) {
		return l.Repo.ListSyncLogs(ctx, params)
	}, l.Retry...)
}

// FindRecent pages newest first; page is 1-based.
func (l *Ledger) FindRecent(ctx context.Context, limit int, f Filters, page int) (Page, error) {
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	out := Page{Page: page, Limit: limit, Logs: []models.CouponSyncLog{}}
	if l == nil || l.Repo == nil {
		return out, nil
	}
	params := repository.ListSyncLogsParams{
		Limit:    limit,
		Offset:   (page - 1) * limit,
		OrderBy:  "started_at",
		Platform: strPtr(f.Platform),
		SyncType: strPtr(f.SyncType),
		Status:   strPtr(f.Status),
	}
	logs, err := retry.DoValue(ctx, func(ctx context.Context) ([]models.CouponSyncLog, error) {
		return l.Repo.ListSyncLogs(ctx, params)
	}, l.Retry...)
	if err != nil {
		return out, err
	}
	total, err := retry.DoValue(ctx, func(ctx context.Context) (int64, error) {
		return l.Repo.CountSyncLogs(ctx, params)
	}, l.Retry...)
	if err != nil {
		return out, err
	}
	if logs != nil {
		out.Logs = logs
	}
	out.Total = total
	out.TotalPages = int(math.Ceil(float64(total) / float64(limit)))
	return out, nil
}

// GetStats aggregates runs started within the last days. Empty platform
// covers all platforms.
func (l *Ledger) GetStats(ctx context.Context, platform string, days int) (Stats, error) {
	if days <= 0 {
		days = 7
	}
	stats := Stats{Platform: platform, Days: days}
	if l == nil || l.Repo == nil {
		return stats, nil
	}
	since := l.now().Add(-time.Duration(days) * 24 * time.Hour)
	params := repository.ListSyncLogsParams{
		Limit:    -1,
		Since:    &since,
		Platform: strPtr(platform),
		OrderBy:  "started_at",
	}
	logs, err := retry.DoValue(ctx, func(ctx context.Context) ([]models.CouponSyncLog, error) {
		return l.Repo.ListSyncLogs(ctx, params)
	}, l.Retry...)
	if err != nil {
		return stats, err
	}
	var durationSum int64
	var durationN int
	for _, item := range logs {
		stats.TotalSyncs++
		switch item.Status {
		case models.SyncStatusCompleted:
			stats.Successful++
		case models.SyncStatusFailed:
			stats.Failed++
		case models.SyncStatusRunning:
			stats.Running++
		}
		stats.TotalCouponsFound += item.CouponsFound
		stats.TotalCreated += item.CouponsCreated
		stats.TotalUpdated += item.CouponsUpdated
		stats.TotalExpired += item.CouponsExpired
		stats.TotalErrors += item.Errors
		if item.CompletedAt != nil {
			durationSum += item.DurationMs
			durationN++
		}
	}
	if durationN > 0 {
		stats.AvgDurationMs = float64(durationSum) / float64(durationN)
	}
	return stats, nil
}

func (l *Ledger) Cleanup(ctx context.Context, daysToKeep int) (int64, error) {
	if l == nil || l.Repo == nil {
		return 0, nil
	}
	if daysToKeep <= 0 {
		daysToKeep = DefaultRetentionDays
	}
	cutoff := l.now().Add(-time.Duration(daysToKeep) * 24 * time.Hour)
	n, err := retry.DoValue(ctx, func(ctx context.Context) (int64, error) {
		return l.Repo.DeleteSyncLogsBefore(ctx, cutoff)
	}, l.Retry...)
	if err != nil {
		return 0, err
	}
	if n > 0 && l.Logger != nil {
		l.Logger.Info("sync logs pruned", zap.Int64("deleted", n), zap.Int("days_to_keep", daysToKeep))
	}
	return n, nil
}

func strPtr(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
