package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/config"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
)

const (
	EventNewCoupon     = "coupon.new"
	EventExpiredCoupon = "coupon.expired"
)

// Notifier receives lifecycle events. Callers log failures and move on.
type Notifier interface {
	NotifyNewCoupon(ctx context.Context, c models.Coupon) error
	NotifyExpiredCoupon(ctx context.Context, c models.Coupon) error
}

type Nop struct{}

func (Nop) NotifyNewCoupon(context.Context, models.Coupon) error     { return nil }
func (Nop) NotifyExpiredCoupon(context.Context, models.Coupon) error { return nil }

// Dispatcher fans one event out to every configured channel.
type Dispatcher struct {
	WebhookURL       string
	TelegramBotToken string
	TelegramChatID   string

	Webhook  WebhookSender
	Telegram TelegramSender
	Logger   *zap.Logger
}

func NewDispatcher(cfg config.NotifyConfig, logger *zap.Logger) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	return &Dispatcher{
		WebhookURL:       strings.TrimSpace(cfg.WebhookURL),
		TelegramBotToken: strings.TrimSpace(cfg.TelegramBotToken),
		TelegramChatID:   strings.TrimSpace(cfg.TelegramChatID),
		Webhook:          WebhookSender{HTTP: client},
		Telegram:         TelegramSender{HTTP: client},
		Logger:           logger,
	}
}

func (d *Dispatcher) Enabled() bool {
	return d != nil && (d.WebhookURL != "" || (d.TelegramBotToken != "" && d.TelegramChatID != ""))
}

func (d *Dispatcher) NotifyNewCoupon(ctx context.Context, c models.Coupon) error {
	return d.send(ctx, EventNewCoupon, c, FormatNewCoupon(c))
}

func (d *Dispatcher) NotifyExpiredCoupon(ctx context.Context, c models.Coupon) error {
	return d.send(ctx, EventExpiredCoupon, c, FormatExpiredCoupon(c))
}

func (d *Dispatcher) send(ctx context.Context, event string, c models.Coupon, message string) error {
	if !d.Enabled() {
		return nil
	}
	var errs []error
	if d.WebhookURL != "" {
		payload := WebhookPayload{
			Event:    event,
			Message:  message,
			CouponID: c.ID,
			Code:     c.Code,
			Platform: c.Platform,
		}
		if err := d.Webhook.Send(ctx, d.WebhookURL, payload); err != nil {
			errs = append(errs, fmt.Errorf("webhook: %w", err))
		}
	}
	if d.TelegramBotToken != "" && d.TelegramChatID != "" {
		if err := d.Telegram.Send(ctx, d.TelegramBotToken, d.TelegramChatID, message); err != nil {
			errs = append(errs, fmt.Errorf("telegram: %w", err))
		}
	}
	err := errors.Join(errs...)
	if err != nil && d.Logger != nil {
		d.Logger.Warn("coupon notification failed",
			zap.String("event", event),
			zap.String("code", c.Code),
			zap.Error(err),
		)
	}
	return err
}

func FormatNewCoupon(c models.Coupon) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New %s coupon: %s\n", c.Platform, c.Code)
	b.WriteString(discountLine(c))
	if c.MinPurchase.IsPositive() {
		fmt.Fprintf(&b, "\nMinimum purchase: %s", c.MinPurchase.StringFixed(2))
	}
	if c.ValidUntil != nil {
		fmt.Fprintf(&b, "\nValid until: %s", c.ValidUntil.UTC().Format("2006-01-02"))
	}
	if c.AffiliateLink != "" {
		fmt.Fprintf(&b, "\n%s", c.AffiliateLink)
	}
	return b.String()
}

func FormatExpiredCoupon(c models.Coupon) string {
	return fmt.Sprintf("Coupon %s (%s) has expired and was deactivated", c.Code, c.Platform)
}

func discountLine(c models.Coupon) string {
	if c.DiscountType == models.DiscountTypePercentage {
		line := fmt.Sprintf("%s%% off", c.DiscountValue.String())
		if c.MaxDiscountValue.Valid {
			line += fmt.Sprintf(" (up to %s)", c.MaxDiscountValue.Decimal.StringFixed(2))
		}
		return line
	}
	return fmt.Sprintf("%s off", c.DiscountValue.StringFixed(2))
}
