package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/ledger"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/platform"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository/memory"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/retry"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/validator"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeAdapter struct {
	name       string
	mu         sync.Mutex
	candidates []models.Candidate
	err        error
	verify     map[string]bool
	calls      int
}

func (a *fakeAdapter) Platform() string { return a.name }

func (a *fakeAdapter) CaptureCoupons(ctx context.Context) ([]models.Candidate, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	out := make([]models.Candidate, len(a.candidates))
	copy(out, a.candidates)
	return out, nil
}

func (a *fakeAdapter) VerifyCoupon(ctx context.Context, code string) (platform.VerifyResult, error) {
	valid, ok := a.verify[code]
	if !ok {
		return platform.VerifyResult{}, errors.New("upstream unavailable")
	}
	return platform.VerifyResult{Valid: valid}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []string
	expired []string
}

func (n *recordingNotifier) NotifyNewCoupon(ctx context.Context, c models.Coupon) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, c.Code)
	return nil
}

func (n *recordingNotifier) NotifyExpiredCoupon(ctx context.Context, c models.Coupon) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired = append(n.expired, c.Code)
	return nil
}

type stubSettings struct {
	cfg models.CouponSettings
}

func (s stubSettings) Get(ctx context.Context) (models.CouponSettings, error) {
	return s.cfg, nil
}

func candidate(platformName, code string) models.Candidate {
	return models.Candidate{
		Platform:      platformName,
		Code:          code,
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		MinPurchase:   decimal.Zero,
		IsGeneral:     true,
		ValidUntil:    "2026-12-31",
	}
}

type fixture struct {
	orch     *Orchestrator
	store    *memory.Store
	notifier *recordingNotifier
	ledger   *ledger.Ledger
}

func newFixture(t *testing.T, cfg models.CouponSettings, adapters ...platform.Adapter) fixture {
	t.Helper()
	store := memory.New()
	reg, err := platform.NewRegistry(adapters...)
	require.NoError(t, err)
	clock := func() time.Time { return testNow }
	led := &ledger.Ledger{Repo: store, Now: clock}
	n := &recordingNotifier{}
	return fixture{
		orch: &Orchestrator{
			Coupons:   store,
			Ledger:    led,
			Settings:  stubSettings{cfg: cfg},
			Registry:  reg,
			Validator: &validator.Validator{Now: clock},
			Notifier:  n,
			Now:       clock,
		},
		store:    store,
		notifier: n,
		ledger:   led,
	}
}

func onlyPlatforms(names ...string) models.CouponSettings {
	cfg := models.DefaultCouponSettings()
	cfg.ShopeeEnabled, cfg.MeliEnabled, cfg.AmazonEnabled, cfg.AliExpressEnabled, cfg.GatryEnabled = false, false, false, false, false
	for _, n := range names {
		switch n {
		case models.PlatformShopee:
			cfg.ShopeeEnabled = true
		case models.PlatformMercadoLivre:
			cfg.MeliEnabled = true
		case models.PlatformGatry:
			cfg.GatryEnabled = true
		}
	}
	return cfg
}

func TestSaveCoupon_Idempotent(t *testing.T) {
	f := newFixture(t, onlyPlatforms())
	ctx := context.Background()
	c := candidate(models.PlatformShopee, "SAVE2024")

	first, err := f.orch.SaveCoupon(ctx, c)
	require.NoError(t, err)
	assert.True(t, first.IsNew)
	assert.Equal(t, ActionCreated, first.Action)

	second, err := f.orch.SaveCoupon(ctx, c)
	require.NoError(t, err)
	assert.False(t, second.IsNew)
	assert.Equal(t, ActionUpdated, second.Action)
	require.NotNil(t, second.Coupon.LastVerifiedAt)

	assert.Len(t, f.store.Coupons(), 1)
}

func TestSaveCoupon_ApprovedNotDemotedByPending(t *testing.T) {
	f := newFixture(t, onlyPlatforms())
	ctx := context.Background()

	approved := candidate(models.PlatformShopee, "FRETEGRATIS")
	approved.DiscountValue = decimal.NewFromInt(25)
	_, err := f.orch.SaveCoupon(ctx, approved)
	require.NoError(t, err)

	pending := candidate(models.PlatformShopee, "FRETEGRATIS")
	pending.IsPendingApproval = true
	pending.DiscountValue = decimal.NewFromInt(99)
	res, err := f.orch.SaveCoupon(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, ActionKeptApproved, res.Action)
	assert.False(t, res.IsNew)

	stored, err := f.store.FindCouponByCode(ctx, "FRETEGRATIS")
	require.NoError(t, err)
	assert.False(t, stored.IsPendingApproval)
	assert.True(t, stored.DiscountValue.Equal(decimal.NewFromInt(25)))
}

func TestSaveCoupon_PendingDuplicateDiscarded(t *testing.T) {
	f := newFixture(t, onlyPlatforms())
	ctx := context.Background()

	p1 := candidate(models.PlatformGatry, "BEMVINDO15")
	p1.IsPendingApproval = true
	first, err := f.orch.SaveCoupon(ctx, p1)
	require.NoError(t, err)
	assert.True(t, first.IsNew)
	assert.False(t, first.ShouldNotify())

	p2 := p1
	p2.DiscountValue = decimal.NewFromInt(50)
	second, err := f.orch.SaveCoupon(ctx, p2)
	require.NoError(t, err)
	assert.Equal(t, ActionDuplicatePending, second.Action)
	assert.True(t, second.Coupon.DiscountValue.Equal(decimal.NewFromInt(10)))
	assert.Len(t, f.store.Coupons(), 1)
}

func TestSaveCoupon_PendingPromotedByApproved(t *testing.T) {
	f := newFixture(t, onlyPlatforms())
	ctx := context.Background()

	p := candidate(models.PlatformGatry, "BEMVINDO15")
	p.IsPendingApproval = true
	_, err := f.orch.SaveCoupon(ctx, p)
	require.NoError(t, err)

	a := candidate(models.PlatformGatry, "BEMVINDO15")
	a.DiscountValue = decimal.NewFromInt(20)
	res, err := f.orch.SaveCoupon(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, ActionPromoted, res.Action)
	assert.False(t, res.IsNew)
	assert.False(t, res.Coupon.IsPendingApproval)
	assert.True(t, res.Coupon.DiscountValue.Equal(decimal.NewFromInt(20)))
	require.NotNil(t, res.Coupon.LastVerifiedAt)
	assert.True(t, res.ShouldNotify())
}

func TestCaptureAll_EndToEnd(t *testing.T) {
	shopee := &fakeAdapter{name: models.PlatformShopee, candidates: []models.Candidate{
		candidate(models.PlatformShopee, "SAVE2024"),
		candidate(models.PlatformShopee, "TEST"),
		candidate(models.PlatformShopee, "FRETEGRATIS"),
	}}
	meli := &fakeAdapter{name: models.PlatformMercadoLivre, candidates: []models.Candidate{
		candidate(models.PlatformMercadoLivre, "MELI-12345678"),
		candidate(models.PlatformMercadoLivre, "BLACKFRIDAY"),
	}}
	f := newFixture(t, onlyPlatforms(models.PlatformShopee, models.PlatformMercadoLivre), shopee, meli)
	ctx := context.Background()

	existing := candidate(models.PlatformMercadoLivre, "BLACKFRIDAY")
	_, err := f.orch.SaveCoupon(ctx, existing)
	require.NoError(t, err)
	f.notifier.created = nil

	res, err := f.orch.CaptureAll(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 5, res.TotalFound)
	assert.Equal(t, 3, res.TotalCreated)
	assert.Equal(t, 1, res.TotalUpdated)
	assert.Equal(t, 0, res.TotalErrors)
	assert.ElementsMatch(t, []string{"SAVE2024", "FRETEGRATIS", "MELI-12345678"}, f.notifier.created)

	page, err := f.ledger.FindRecent(ctx, 10, ledger.Filters{SyncType: models.SyncTypeCapture}, 1)
	require.NoError(t, err)
	require.Len(t, page.Logs, 2)
	for _, run := range page.Logs {
		assert.Equal(t, models.SyncStatusCompleted, run.Status, run.Platform)
		require.NotNil(t, run.CompletedAt)
	}
}

func TestCaptureAll_DisabledHasNoSideEffects(t *testing.T) {
	shopee := &fakeAdapter{name: models.PlatformShopee, candidates: []models.Candidate{candidate(models.PlatformShopee, "SAVE2024")}}
	cfg := onlyPlatforms(models.PlatformShopee)
	cfg.AutoCaptureEnabled = false
	f := newFixture(t, cfg, shopee)

	res, err := f.orch.CaptureAll(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 0, shopee.calls)
	assert.Empty(t, f.store.Coupons())
	page, err := f.ledger.FindRecent(context.Background(), 10, ledger.Filters{}, 1)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestCaptureAll_AdapterFailureDoesNotAbort(t *testing.T) {
	shopee := &fakeAdapter{name: models.PlatformShopee, err: errors.New("upstream 500")}
	gatry := &fakeAdapter{name: models.PlatformGatry, candidates: []models.Candidate{candidate(models.PlatformGatry, "BEMVINDO15")}}
	f := newFixture(t, onlyPlatforms(models.PlatformShopee, models.PlatformGatry), shopee, gatry)
	ctx := context.Background()

	res, err := f.orch.CaptureAll(ctx)
	require.NoError(t, err)
	require.Len(t, res.Platforms, 2)
	assert.Equal(t, 1, res.Platforms[0].Errors)
	assert.Equal(t, 0, res.Platforms[0].Found)
	assert.Equal(t, 1, res.Platforms[1].Created)
	assert.Equal(t, 1, res.TotalErrors)

	failed, err := f.ledger.FindRecent(ctx, 10, ledger.Filters{Status: models.SyncStatusFailed}, 1)
	require.NoError(t, err)
	require.Len(t, failed.Logs, 1)
	assert.Equal(t, models.PlatformShopee, failed.Logs[0].Platform)
	require.NotNil(t, failed.Logs[0].ErrorDetails)
	assert.Contains(t, *failed.Logs[0].ErrorDetails, "upstream 500")
}

// flakyCoupons fails every insert for one platform with a transient error.
type flakyCoupons struct {
	*memory.Store
	platform string
	inserts  int
}

func (f *flakyCoupons) CreateCoupon(ctx context.Context, item *models.Coupon) error {
	if item.Platform == f.platform {
		f.inserts++
		return retry.Transient(errors.New("connection reset by peer"))
	}
	return f.Store.CreateCoupon(ctx, item)
}

func TestCaptureAll_StorageFailureFailsOnlyThatPlatform(t *testing.T) {
	shopee := &fakeAdapter{name: models.PlatformShopee, candidates: []models.Candidate{candidate(models.PlatformShopee, "SAVE2024")}}
	gatry := &fakeAdapter{name: models.PlatformGatry, candidates: []models.Candidate{candidate(models.PlatformGatry, "BEMVINDO15")}}
	f := newFixture(t, onlyPlatforms(models.PlatformShopee, models.PlatformGatry), shopee, gatry)
	coupons := &flakyCoupons{Store: f.store, platform: models.PlatformShopee}
	f.orch.Coupons = coupons
	f.orch.Retry = []retry.Option{retry.WithInitialDelay(time.Millisecond)}
	ctx := context.Background()

	res, err := f.orch.CaptureAll(ctx)
	require.NoError(t, err)
	require.Len(t, res.Platforms, 2)

	failed := res.Platforms[0]
	assert.Equal(t, models.PlatformShopee, failed.Platform)
	assert.Equal(t, 1, failed.Errors)
	assert.Equal(t, 0, failed.Found)
	assert.Equal(t, 0, failed.Created)
	assert.Equal(t, 4, coupons.inserts, "initial attempt plus three retries")

	assert.Equal(t, 1, res.Platforms[1].Created)
	assert.Equal(t, 1, res.TotalErrors)
	assert.Equal(t, []string{"BEMVINDO15"}, f.notifier.created)

	run, err := f.store.GetSyncLog(ctx, failed.SyncLogID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.SyncStatusFailed, run.Status)
	require.NotNil(t, run.ErrorDetails)
	assert.Contains(t, *run.ErrorDetails, "connection reset by peer")
	assert.Zero(t, run.CouponsFound)
	assert.Zero(t, run.CouponsCreated)
}

func TestCaptureAll_EnabledPlatformWithoutAdapterIsLogged(t *testing.T) {
	gatry := &fakeAdapter{name: models.PlatformGatry, candidates: []models.Candidate{candidate(models.PlatformGatry, "BEMVINDO15")}}
	f := newFixture(t, onlyPlatforms(models.PlatformMercadoLivre, models.PlatformGatry), gatry)
	ctx := context.Background()

	res, err := f.orch.CaptureAll(ctx)
	require.NoError(t, err)
	require.Len(t, res.Platforms, 2)
	assert.Equal(t, 1, res.TotalErrors)
	assert.Equal(t, 1, res.TotalCreated)

	failed, err := f.ledger.FindRecent(ctx, 10, ledger.Filters{Status: models.SyncStatusFailed}, 1)
	require.NoError(t, err)
	require.Len(t, failed.Logs, 1)
	assert.Equal(t, models.PlatformMercadoLivre, failed.Logs[0].Platform)
	require.NotNil(t, failed.Logs[0].ErrorDetails)
	assert.Contains(t, *failed.Logs[0].ErrorDetails, models.PlatformMercadoLivre)
}

func TestCapturePlatform_UnknownPlatform(t *testing.T) {
	f := newFixture(t, onlyPlatforms())
	_, err := f.orch.CapturePlatform(context.Background(), "amazon")
	assert.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestCheckExpiredCoupons(t *testing.T) {
	f := newFixture(t, onlyPlatforms())
	ctx := context.Background()
	past := testNow.Add(-time.Hour)
	require.NoError(t, f.store.CreateCoupon(ctx, &models.Coupon{
		ID: "old", Code: "OLDCODE1", Platform: models.PlatformShopee, IsActive: true,
		DiscountType: models.DiscountTypeFixed, DiscountValue: decimal.NewFromInt(5),
		ValidUntil: &past, VerificationStatus: models.VerificationActive,
	}))
	_, err := f.orch.SaveCoupon(ctx, candidate(models.PlatformShopee, "SAVE2024"))
	require.NoError(t, err)

	res, err := f.orch.CheckExpiredCoupons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Found)
	assert.Equal(t, 1, res.Deactivated)
	assert.Equal(t, []string{"OLDCODE1"}, f.notifier.expired)

	old, err := f.store.FindCouponByID(ctx, "old")
	require.NoError(t, err)
	assert.False(t, old.IsActive)
	assert.Equal(t, models.VerificationExpired, old.VerificationStatus)
}

func TestVerifyActiveCoupons(t *testing.T) {
	shopee := &fakeAdapter{name: models.PlatformShopee, verify: map[string]bool{"SAVE2024": true, "FRETEGRATIS": false}}
	f := newFixture(t, onlyPlatforms(models.PlatformShopee), shopee)
	ctx := context.Background()
	for _, code := range []string{"SAVE2024", "FRETEGRATIS", "BLACKFRIDAY"} {
		_, err := f.orch.SaveCoupon(ctx, candidate(models.PlatformShopee, code))
		require.NoError(t, err)
	}

	res, err := f.orch.VerifyActiveCoupons(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Checked)
	assert.Equal(t, 1, res.Verified)
	assert.Equal(t, 1, res.Invalid)
	assert.Equal(t, 1, res.Errors)

	bad, err := f.store.FindCouponByCode(ctx, "FRETEGRATIS")
	require.NoError(t, err)
	assert.False(t, bad.IsActive)
	assert.Equal(t, models.VerificationInvalid, bad.VerificationStatus)

	unknown, err := f.store.FindCouponByCode(ctx, "BLACKFRIDAY")
	require.NoError(t, err)
	assert.True(t, unknown.IsActive)
}

func TestLifecycleTransitions(t *testing.T) {
	f := newFixture(t, onlyPlatforms())
	ctx := context.Background()
	p := candidate(models.PlatformGatry, "BEMVINDO15")
	p.IsPendingApproval = true
	saved, err := f.orch.SaveCoupon(ctx, p)
	require.NoError(t, err)

	approved, err := f.orch.ApproveCoupon(ctx, saved.Coupon.ID)
	require.NoError(t, err)
	assert.False(t, approved.IsPendingApproval)
	assert.Equal(t, []string{"BEMVINDO15"}, f.notifier.created)

	expired, err := f.orch.ExpireCoupon(ctx, saved.Coupon.ID)
	require.NoError(t, err)
	assert.False(t, expired.IsActive)

	back, err := f.orch.ReactivateCoupon(ctx, saved.Coupon.ID)
	require.NoError(t, err)
	assert.True(t, back.IsActive)
	assert.Equal(t, models.VerificationActive, back.VerificationStatus)

	_, err = f.orch.RejectCoupon(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetStats(t *testing.T) {
	shopee := &fakeAdapter{name: models.PlatformShopee, candidates: []models.Candidate{candidate(models.PlatformShopee, "SAVE2024")}}
	f := newFixture(t, onlyPlatforms(models.PlatformShopee), shopee)
	ctx := context.Background()
	_, err := f.orch.CaptureAll(ctx)
	require.NoError(t, err)

	st, err := f.orch.GetStats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.ActiveCoupons)
	assert.Equal(t, 1, st.Platforms[models.PlatformShopee].TotalSyncs)
	assert.Equal(t, 1, st.Platforms[models.PlatformShopee].TotalCreated)
}
