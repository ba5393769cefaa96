package validator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
)

func TestValidateCode(t *testing.T) {
	cases := []struct {
		code     string
		valid    bool
		fallback bool
	}{
		{"TESTE", false, false},
		{"teste10", false, false},
		{"SAVE2024", true, false},
		{"AAAA", false, false},
		{"MELI-12345678", true, true},
		{"shopee-99", true, true},
		{"", false, false},
		{"   ", false, false},
		{"AB", false, false},
		{"N/A", false, false},
		{"DEMO50", false, false},
		{"PROMO 10", false, false},
		{"CUPOM$10", false, false},
		{"BLACKFRIDAY", true, false},
		{"FRETEGRATIS", true, false},
		{"QQQQX10", false, false},
		{"OFF11119", false, false},
		{"AB12", false, false},
		{"BEMVINDO15", true, false},
		{"MEGA_SALE-30", true, false},
		{"12345", true, false},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			res := ValidateCode(tc.code)
			assert.Equal(t, tc.valid, res.Valid, "reason=%q", res.Reason)
			assert.Equal(t, tc.fallback, res.IsFallback)
			if !tc.valid {
				assert.NotEmpty(t, res.Reason)
			}
		})
	}
}

func fixedValidator() *Validator {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &Validator{Now: func() time.Time { return now }}
}

func baseCandidate() models.Candidate {
	return models.Candidate{
		Platform:      models.PlatformShopee,
		Code:          "SAVE2024",
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(15),
		MinPurchase:   decimal.Zero,
		IsGeneral:     true,
	}
}

func TestValidateCoupon(t *testing.T) {
	v := fixedValidator()

	ok := baseCandidate()
	ok.ValidUntil = "2026-03-10"
	assert.True(t, v.ValidateCoupon(ok).Valid)

	zero := baseCandidate()
	zero.DiscountValue = decimal.Zero
	assert.False(t, v.ValidateCoupon(zero).Valid)

	other := baseCandidate()
	other.DiscountType = "other"
	assert.False(t, v.ValidateCoupon(other).Valid)

	past := baseCandidate()
	past.ValidUntil = "2026-03-09T23:59:59Z"
	assert.False(t, v.ValidateCoupon(past).Valid)

	garbage := baseCandidate()
	garbage.ValidUntil = "next friday"
	assert.False(t, v.ValidateCoupon(garbage).Valid)

	noExpiry := baseCandidate()
	noExpiry.DiscountType = models.DiscountTypeFixed
	assert.True(t, v.ValidateCoupon(noExpiry).Valid)
}

func TestFilterValidCoupons_KeepsOrder(t *testing.T) {
	v := fixedValidator()
	v.Logger = zap.NewNop()

	a := baseCandidate()
	a.Code = "FIRST10OFF"
	b := baseCandidate()
	b.Code = "TEST"
	c := baseCandidate()
	c.Code = "LAST20OFF"

	valid, rejected := v.FilterValidCoupons([]models.Candidate{a, b, c})
	require.Len(t, valid, 2)
	assert.Equal(t, "FIRST10OFF", valid[0].Code)
	assert.Equal(t, "LAST20OFF", valid[1].Code)
	require.Len(t, rejected, 1)
	assert.Equal(t, "TEST", rejected[0].Candidate.Code)
}
