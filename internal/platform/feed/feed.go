// Package feed adapts a JSON coupon feed to platform.Adapter. Each source is
// configured with the URL of a feed returning {"coupons": [...]} and an
// optional verification endpoint.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/config"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/platform"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/retry"
)

const maxBodyBytes = 8 << 20

type Adapter struct {
	Name      string
	BaseURL   string
	VerifyURL string
	APIKey    string
	HTTP      *http.Client
	Retry     []retry.Option
}

func New(name string, cfg config.PlatformConfig, retryOpts ...retry.Option) *Adapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Adapter{
		Name:      name,
		BaseURL:   cfg.BaseURL,
		VerifyURL: cfg.VerifyURL,
		APIKey:    cfg.APIKey,
		HTTP:      &http.Client{Timeout: timeout},
		Retry:     retryOpts,
	}
}

type feedResponse struct {
	Coupons []feedCoupon `json:"coupons"`
}

type feedCoupon struct {
	Code               string              `json:"code"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	DiscountType       string              `json:"discount_type"`
	DiscountValue      decimal.Decimal     `json:"discount_value"`
	MinPurchase        decimal.Decimal     `json:"min_purchase"`
	MaxDiscountValue   decimal.NullDecimal `json:"max_discount_value"`
	IsGeneral          *bool               `json:"is_general"`
	ApplicableProducts []string            `json:"applicable_products"`
	ValidFrom          *time.Time          `json:"valid_from"`
	ValidUntil         string              `json:"valid_until"`
	SourceURL          string              `json:"source_url"`
	AffiliateLink      string              `json:"affiliate_link"`
	CampaignID         string              `json:"campaign_id"`
	CampaignName       string              `json:"campaign_name"`
	IsPendingApproval  bool                `json:"is_pending_approval"`
}

func (a *Adapter) Platform() string {
	return a.Name
}

func (a *Adapter) CaptureCoupons(ctx context.Context) ([]models.Candidate, error) {
	base := strings.TrimSpace(a.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("%s feed url is empty", a.Name)
	}
	var resp feedResponse
	err := retry.Do(ctx, func(ctx context.Context) error {
		return a.getJSON(ctx, base, &resp)
	}, a.Retry...)
	if err != nil {
		return nil, fmt.Errorf("%s capture: %w", a.Name, err)
	}
	out := make([]models.Candidate, 0, len(resp.Coupons))
	for _, c := range resp.Coupons {
		out = append(out, a.toCandidate(c))
	}
	return out, nil
}

func (a *Adapter) VerifyCoupon(ctx context.Context, code string) (platform.VerifyResult, error) {
	endpoint := strings.TrimSpace(a.VerifyURL)
	if endpoint == "" {
		return platform.VerifyResult{Valid: true, Message: "verification not supported"}, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return platform.VerifyResult{}, err
	}
	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()

	var res platform.VerifyResult
	err = retry.Do(ctx, func(ctx context.Context) error {
		return a.getJSON(ctx, u.String(), &res)
	}, a.Retry...)
	if err != nil {
		return platform.VerifyResult{}, fmt.Errorf("%s verify %s: %w", a.Name, code, err)
	}
	return res, nil
}

func (a *Adapter) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if key := strings.TrimSpace(a.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := a.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return retry.FromStatus(resp.StatusCode, fmt.Errorf("%s http %d: %s", a.Name, resp.StatusCode, truncate(strings.TrimSpace(string(b)), 200)))
	}
	if err := json.Unmarshal(b, out); err != nil {
		return retry.Permanent(errors.Join(errors.New("decode feed"), err))
	}
	return nil
}

func (a *Adapter) httpClient() *http.Client {
	if a.HTTP != nil {
		return a.HTTP
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func (a *Adapter) toCandidate(c feedCoupon) models.Candidate {
	general := len(c.ApplicableProducts) == 0
	if c.IsGeneral != nil {
		general = *c.IsGeneral
	}
	products := c.ApplicableProducts
	if general {
		products = nil
	}
	return models.Candidate{
		Platform:           a.Name,
		Code:               strings.TrimSpace(c.Code),
		Title:              c.Title,
		Description:        c.Description,
		DiscountType:       strings.ToLower(strings.TrimSpace(c.DiscountType)),
		DiscountValue:      c.DiscountValue,
		MinPurchase:        c.MinPurchase,
		MaxDiscountValue:   c.MaxDiscountValue,
		IsGeneral:          general,
		ApplicableProducts: products,
		ValidFrom:          c.ValidFrom,
		ValidUntil:         strings.TrimSpace(c.ValidUntil),
		SourceURL:          c.SourceURL,
		AffiliateLink:      c.AffiliateLink,
		CampaignID:         c.CampaignID,
		CampaignName:       c.CampaignName,
		CaptureSource:      "feed:" + a.Name,
		IsPendingApproval:  c.IsPendingApproval,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ platform.Adapter = (*Adapter)(nil)
