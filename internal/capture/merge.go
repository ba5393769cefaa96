package capture

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/retry"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/validator"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	// ActionPromoted: a pending record confirmed by an approved report.
	ActionPromoted = "promoted"
	// ActionDuplicatePending: pending report of an already pending code.
	ActionDuplicatePending = "duplicate_pending"
	// ActionKeptApproved: pending report of an approved code; never demoted.
	ActionKeptApproved = "kept_approved"
)

// SaveResult reports one merge. IsNew is true only for a fresh insert; a
// promotion keeps IsNew false but still notifies, see ShouldNotify.
type SaveResult struct {
	Coupon models.Coupon `json:"coupon"`
	IsNew  bool          `json:"is_new"`
	Action string        `json:"action"`
}

// ShouldNotify is true when the stored coupon just became publicly visible.
func (r SaveResult) ShouldNotify() bool {
	if r.Coupon.IsPendingApproval {
		return false
	}
	return r.IsNew || r.Action == ActionPromoted
}

// SaveCoupon merges one validated candidate into the catalog by code.
func (o *Orchestrator) SaveCoupon(ctx context.Context, c models.Candidate) (SaveResult, error) {
	code := strings.TrimSpace(c.Code)
	existing, err := o.findByCode(ctx, code)
	if err != nil {
		return SaveResult{}, err
	}

	if existing == nil {
		item := o.newCoupon(c)
		err := retry.Do(ctx, func(ctx context.Context) error {
			return o.Coupons.CreateCoupon(ctx, &item)
		}, o.Retry...)
		if err == nil {
			return SaveResult{Coupon: item, IsNew: true, Action: ActionCreated}, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return SaveResult{}, err
		}
		// Another writer created the code between lookup and insert.
		existing, err = o.findByCode(ctx, code)
		if err != nil {
			return SaveResult{}, err
		}
		if existing == nil {
			return SaveResult{}, repository.ErrDuplicate
		}
	}

	switch {
	case existing.IsPendingApproval && c.IsPendingApproval:
		return SaveResult{Coupon: *existing, Action: ActionDuplicatePending}, nil
	case !existing.IsPendingApproval && c.IsPendingApproval:
		return SaveResult{Coupon: *existing, Action: ActionKeptApproved}, nil
	case !existing.IsPendingApproval && !c.IsPendingApproval:
		updated, err := o.updateCoupon(ctx, existing.ID, o.mergeUpdates(c))
		if err != nil {
			return SaveResult{}, err
		}
		return SaveResult{Coupon: *updated, Action: ActionUpdated}, nil
	default:
		updates := o.mergeUpdates(c)
		updates["is_pending_approval"] = false
		updated, err := o.updateCoupon(ctx, existing.ID, updates)
		if err != nil {
			return SaveResult{}, err
		}
		return SaveResult{Coupon: *updated, Action: ActionPromoted}, nil
	}
}

func (o *Orchestrator) findByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return retry.DoValue(ctx, func(ctx context.Context) (*models.Coupon, error) {
		return o.Coupons.FindCouponByCode(ctx, code)
	}, o.Retry...)
}

func (o *Orchestrator) updateCoupon(ctx context.Context, id string, updates map[string]any) (*models.Coupon, error) {
	return retry.DoValue(ctx, func(ctx context.Context) (*models.Coupon, error) {
		return o.Coupons.UpdateCoupon(ctx, id, updates)
	}, o.Retry...)
}

func (o *Orchestrator) newCoupon(c models.Candidate) models.Coupon {
	now := o.now()
	validFrom := now
	if c.ValidFrom != nil && !c.ValidFrom.IsZero() {
		validFrom = c.ValidFrom.UTC()
	}
	return models.Coupon{
		ID:                 o.newID(),
		Code:               strings.TrimSpace(c.Code),
		Platform:           c.Platform,
		Title:              c.Title,
		Description:        c.Description,
		DiscountType:       strings.ToLower(strings.TrimSpace(c.DiscountType)),
		DiscountValue:      c.DiscountValue,
		MinPurchase:        c.MinPurchase,
		MaxDiscountValue:   c.MaxDiscountValue,
		IsGeneral:          c.IsGeneral,
		ApplicableProducts: products(c),
		ValidFrom:          validFrom,
		ValidUntil:         validUntil(c.ValidUntil),
		AutoCaptured:       true,
		IsPendingApproval:  c.IsPendingApproval,
		IsActive:           true,
		VerificationStatus: models.VerificationActive,
		SourceURL:          c.SourceURL,
		AffiliateLink:      c.AffiliateLink,
		CampaignID:         c.CampaignID,
		CampaignName:       c.CampaignName,
		CaptureSource:      c.CaptureSource,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// mergeUpdates copies the source-owned fields and stamps last_verified_at.
// Activity and moderation flags are left to the lifecycle operations.
func (o *Orchestrator) mergeUpdates(c models.Candidate) map[string]any {
	now := o.now()
	updates := map[string]any{
		"platform":            c.Platform,
		"discount_type":       strings.ToLower(strings.TrimSpace(c.DiscountType)),
		"discount_value":      c.DiscountValue,
		"min_purchase":        c.MinPurchase,
		"max_discount_value":  c.MaxDiscountValue,
		"is_general":          c.IsGeneral,
		"applicable_products": products(c),
		"valid_until":         validUntil(c.ValidUntil),
		"last_verified_at":    now,
		"updated_at":          now,
	}
	setIfPresent(updates, "title", c.Title)
	setIfPresent(updates, "description", c.Description)
	setIfPresent(updates, "source_url", c.SourceURL)
	setIfPresent(updates, "affiliate_link", c.AffiliateLink)
	setIfPresent(updates, "campaign_id", c.CampaignID)
	setIfPresent(updates, "campaign_name", c.CampaignName)
	setIfPresent(updates, "capture_source", c.CaptureSource)
	if c.ValidFrom != nil && !c.ValidFrom.IsZero() {
		updates["valid_from"] = c.ValidFrom.UTC()
	}
	return updates
}

func setIfPresent(updates map[string]any, key, val string) {
	if strings.TrimSpace(val) != "" {
		updates[key] = val
	}
}

func products(c models.Candidate) datatypes.JSONSlice[string] {
	if c.IsGeneral || len(c.ApplicableProducts) == 0 {
		return datatypes.JSONSlice[string]{}
	}
	return datatypes.JSONSlice[string](c.ApplicableProducts)
}

func validUntil(raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	t, err := validator.ParseValidUntil(raw)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
