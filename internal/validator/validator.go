// Package validator decides whether a captured coupon is a real, usable
// code. It performs no I/O.
package validator

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
)

type Result struct {
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	IsFallback bool   `json:"is_fallback,omitempty"`
}

type Rejection struct {
	Candidate models.Candidate
	Reason    string
}

var blocklist = map[string]struct{}{
	"PADR": {}, "SORTEIO": {}, "SORTE": {}, "TESTE": {}, "TEST": {},
	"EXEMPLO": {}, "EXAMPLE": {}, "DEMO": {}, "INVALID": {}, "NULL": {},
	"NONE": {}, "N/A": {}, "NA": {}, "TBD": {}, "XXX": {}, "ABC": {},
	"123": {}, "000": {}, "AAAA": {}, "ZZZZ": {},
}

var blockedPrefixes = []string{
	"PADR", "SORTE", "TEST", "DEMO", "EXEMPLO", "EXAMPLE", "NULL", "NONE", "N/A", "XXX",
}

var (
	fallbackPattern     = regexp.MustCompile(`^(MELI|DEAL|CAMP|PROMO|PROD|ALI|AMAZON|SHOPEE)-\d+$`)
	allowedChars        = regexp.MustCompile(`^[A-Za-z0-9\-_]+$`)
	shortLetters        = regexp.MustCompile(`^[A-Z]{1,3}$`)
	shortLettersDigits  = regexp.MustCompile(`^[A-Z]{1,3}[0-9]{1,3}$`)
	dateOnlyLayout      = "2006-01-02"
	acceptedTimeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", dateOnlyLayout}
)

type Validator struct {
	Now    func() time.Time
	Logger *zap.Logger
}

func New(logger *zap.Logger) *Validator {
	return &Validator{Logger: logger}
}

func (v *Validator) now() time.Time {
	if v != nil && v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func ValidateCode(code string) Result {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Result{Reason: "code is empty"}
	}
	upper := strings.ToUpper(trimmed)

	if fallbackPattern.MatchString(upper) {
		return Result{Valid: true, IsFallback: true}
	}
	if len(trimmed) < 4 {
		return Result{Reason: "code shorter than 4 characters"}
	}
	if _, ok := blocklist[upper]; ok {
		return Result{Reason: "code is a placeholder word"}
	}
	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return Result{Reason: "code starts with placeholder " + prefix}
		}
	}
	if !allowedChars.MatchString(trimmed) {
		return Result{Reason: "code contains invalid characters"}
	}
	if shortLetters.MatchString(upper) {
		return Result{Reason: "code is only a few letters"}
	}
	if hasRun(upper, 4, isLetter) {
		return Result{Reason: "code repeats the same letter"}
	}
	if hasRun(upper, 4, isDigit) {
		return Result{Reason: "code repeats the same digit"}
	}
	if shortLettersDigits.MatchString(upper) {
		return Result{Reason: "code has a generic letters-then-digits shape"}
	}
	return Result{Valid: true}
}

// hasRun reports n or more consecutive identical characters of one class.
func hasRun(s string, n int, class func(byte) bool) bool {
	run := 0
	var prev byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !class(c) {
			run = 0
			continue
		}
		if run > 0 && c == prev {
			run++
		} else {
			run = 1
		}
		prev = c
		if run >= n {
			return true
		}
	}
	return false
}

func isLetter(c byte) bool { return c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }

func (v *Validator) ValidateCoupon(c models.Candidate) Result {
	res := ValidateCode(c.Code)
	if !res.Valid {
		return res
	}
	if !c.DiscountValue.IsPositive() {
		return Result{Reason: "discount value must be greater than zero", IsFallback: res.IsFallback}
	}
	switch strings.ToLower(strings.TrimSpace(c.DiscountType)) {
	case models.DiscountTypePercentage, models.DiscountTypeFixed:
	default:
		return Result{Reason: "unsupported discount type " + c.DiscountType, IsFallback: res.IsFallback}
	}
	if raw := strings.TrimSpace(c.ValidUntil); raw != "" {
		until, err := ParseValidUntil(raw)
		if err != nil {
			return Result{Reason: "valid_until is not a valid date", IsFallback: res.IsFallback}
		}
		if until.Before(v.now()) {
			return Result{Reason: "coupon already expired", IsFallback: res.IsFallback}
		}
	}
	return res
}

// FilterValidCoupons keeps the valid candidates in their original order.
func (v *Validator) FilterValidCoupons(list []models.Candidate) ([]models.Candidate, []Rejection) {
	valid := make([]models.Candidate, 0, len(list))
	var rejected []Rejection
	for _, c := range list {
		res := v.ValidateCoupon(c)
		if res.Valid {
			valid = append(valid, c)
			continue
		}
		rejected = append(rejected, Rejection{Candidate: c, Reason: res.Reason})
	}
	if len(rejected) > 0 && v != nil && v.Logger != nil {
		fields := make([]zap.Field, 0, 3)
		reasons := make([]string, 0, len(rejected))
		for _, r := range rejected {
			reasons = append(reasons, r.Candidate.Code+": "+r.Reason)
		}
		fields = append(fields,
			zap.Int("valid", len(valid)),
			zap.Int("invalid", len(rejected)),
			zap.Strings("rejections", reasons),
		)
		v.Logger.Info("coupon candidates rejected", fields...)
	}
	return valid, rejected
}

// ParseValidUntil accepts RFC3339 timestamps and plain dates. A plain date
// is treated as the end of that day in UTC.
func ParseValidUntil(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range acceptedTimeLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			if layout == dateOnlyLayout {
				t = t.Add(24*time.Hour - time.Nanosecond)
			}
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
