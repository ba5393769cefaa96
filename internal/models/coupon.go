package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

const (
	VerificationActive  = "active"
	VerificationExpired = "expired"
	VerificationInvalid = "invalid"
)

const (
	PlatformShopee       = "shopee"
	PlatformMercadoLivre = "mercadolivre"
	PlatformAmazon       = "amazon"
	PlatformAliExpress   = "aliexpress"
	PlatformGatry        = "gatry"
)

// Platforms lists every source in capture order.
var Platforms = []string{
	PlatformShopee,
	PlatformMercadoLivre,
	PlatformAmazon,
	PlatformAliExpress,
	PlatformGatry,
}

// Coupon is one catalog entry. Code is the dedup key.
type Coupon struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Code     string `gorm:"type:varchar(120);not null;uniqueIndex" json:"code"`
	Platform string `gorm:"type:varchar(30);not null;index" json:"platform"`

	Title       string `gorm:"type:varchar(255)" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	DiscountType     string              `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue    decimal.Decimal     `gorm:"type:numeric(20,4);not null" json:"discount_value"`
	MinPurchase      decimal.Decimal     `gorm:"type:numeric(20,4);not null;default:0" json:"min_purchase"`
	MaxDiscountValue decimal.NullDecimal `gorm:"type:numeric(20,4)" json:"max_discount_value"`

	IsGeneral          bool                        `gorm:"not null" json:"is_general"`
	ApplicableProducts datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"applicable_products"`

	ValidFrom      time.Time  `gorm:"type:timestamptz;not null" json:"valid_from"`
	ValidUntil     *time.Time `gorm:"type:timestamptz;index" json:"valid_until,omitempty"`
	LastVerifiedAt *time.Time `gorm:"type:timestamptz" json:"last_verified_at,omitempty"`

	AutoCaptured       bool   `gorm:"not null" json:"auto_captured"`
	IsPendingApproval  bool   `gorm:"not null;index" json:"is_pending_approval"`
	IsActive           bool   `gorm:"not null;index" json:"is_active"`
	VerificationStatus string `gorm:"type:varchar(20);not null;default:'active'" json:"verification_status"`

	SourceURL     string `gorm:"type:text" json:"source_url"`
	AffiliateLink string `gorm:"type:text" json:"affiliate_link"`
	CampaignID    string `gorm:"type:varchar(120)" json:"campaign_id"`
	CampaignName  string `gorm:"type:varchar(255)" json:"campaign_name"`
	CaptureSource string `gorm:"type:varchar(60)" json:"capture_source"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Coupon) TableName() string {
	return "coupons"
}

// Candidate is a coupon as reported by a source, before validation.
// ValidUntil stays raw so the validator can reject unparsable dates.
type Candidate struct {
	Platform           string
	Code               string
	Title              string
	Description        string
	DiscountType       string
	DiscountValue      decimal.Decimal
	MinPurchase        decimal.Decimal
	MaxDiscountValue   decimal.NullDecimal
	IsGeneral          bool
	ApplicableProducts []string
	ValidFrom          *time.Time
	ValidUntil         string
	SourceURL          string
	AffiliateLink      string
	CampaignID         string
	CampaignName       string
	CaptureSource      string
	IsPendingApproval  bool
}
