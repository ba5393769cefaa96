package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/auth"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/capture"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/ledger"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/platform"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository/memory"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/scheduler"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/settings"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/validator"
)

type staticAdapter struct {
	name  string
	codes []string
}

func (a staticAdapter) Platform() string { return a.name }

func (a staticAdapter) CaptureCoupons(ctx context.Context) ([]models.Candidate, error) {
	out := make([]models.Candidate, 0, len(a.codes))
	for _, code := range a.codes {
		out = append(out, models.Candidate{
			Platform:      a.name,
			Code:          code,
			DiscountType:  models.DiscountTypeFixed,
			DiscountValue: decimal.NewFromInt(15),
			IsGeneral:     true,
		})
	}
	return out, nil
}

func (a staticAdapter) VerifyCoupon(ctx context.Context, code string) (platform.VerifyResult, error) {
	return platform.VerifyResult{Valid: true}, nil
}

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

// blockingAdapter parks CaptureCoupons until release is closed.
type blockingAdapter struct {
	staticAdapter
	calls   *atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (a blockingAdapter) CaptureCoupons(ctx context.Context) ([]models.Candidate, error) {
	a.calls.Add(1)
	a.entered <- struct{}{}
	<-a.release
	return a.staticAdapter.CaptureCoupons(ctx)
}

func newTestEngine(t *testing.T, guard gin.HandlerFunc) *gin.Engine {
	t.Helper()
	return newTestEngineWith(t, guard,
		staticAdapter{name: models.PlatformShopee, codes: []string{"SAVE2024", "TEST"}},
		staticAdapter{name: models.PlatformGatry, codes: []string{"BEMVINDO15"}},
	)
}

func newTestEngineWith(t *testing.T, guard gin.HandlerFunc, adapters ...platform.Adapter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.New()
	settingsSvc := &settings.Service{Repo: store}
	require.NoError(t, settingsSvc.EnsureDefaults(context.Background()))

	reg, err := platform.NewRegistry(adapters...)
	require.NoError(t, err)
	led := &ledger.Ledger{Repo: store}
	orch := &capture.Orchestrator{
		Coupons:   store,
		Ledger:    led,
		Settings:  settingsSvc,
		Registry:  reg,
		Validator: &validator.Validator{},
	}
	sched := scheduler.New(scheduler.Config{}, orch, settingsSvc, nil, context.Background())
	t.Cleanup(sched.Shutdown)

	r := gin.New()
	h := &CouponCaptureHandler{Capture: orch, Scheduler: sched, Settings: settingsSvc, Ledger: led, Guard: guard}
	h.Register(r)
	(&HealthHandler{}).Register(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string, header ...string) (int, apiEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env apiEnvelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func TestSyncAllThenListCoupons(t *testing.T) {
	r := newTestEngine(t, nil)

	status, env := doJSON(t, r, http.MethodPost, "/api/coupon-capture/sync/all", "")
	require.Equal(t, http.StatusOK, status, env.Message)
	var res capture.CaptureAllResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.TotalFound)
	assert.Equal(t, 2, res.TotalCreated)

	status, env = doJSON(t, r, http.MethodGet, "/api/coupon-capture/coupons?platform=shopee", "")
	require.Equal(t, http.StatusOK, status)
	var items []models.Coupon
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "SAVE2024", items[0].Code)
	assert.EqualValues(t, 1, env.Meta["total"])

	status, env = doJSON(t, r, http.MethodPut, "/api/coupon-capture/coupons/"+items[0].ID+"/expire", "")
	require.Equal(t, http.StatusOK, status)
	var expired models.Coupon
	require.NoError(t, json.Unmarshal(env.Data, &expired))
	assert.False(t, expired.IsActive)

	// mercadolivre is enabled by default but has no adapter here
	status, env = doJSON(t, r, http.MethodGet, "/api/coupon-capture/logs?sync_type=capture", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, env.Meta["total"])

	status, env = doJSON(t, r, http.MethodGet, "/api/coupon-capture/logs?status=failed", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, env.Meta["total"])
}

func TestSyncPlatform_ConflictsWithRunningCapture(t *testing.T) {
	shopee := blockingAdapter{
		staticAdapter: staticAdapter{name: models.PlatformShopee, codes: []string{"SAVE2024"}},
		calls:         &atomic.Int32{},
		entered:       make(chan struct{}, 1),
		release:       make(chan struct{}),
	}
	r := newTestEngineWith(t, nil, shopee)

	var wg sync.WaitGroup
	wg.Add(1)
	var allStatus int
	go func() {
		defer wg.Done()
		allStatus, _ = doJSON(t, r, http.MethodPost, "/api/coupon-capture/sync/all", "")
	}()
	<-shopee.entered

	status, env := doJSON(t, r, http.MethodPost, "/api/coupon-capture/sync/shopee", "")
	assert.Equal(t, http.StatusConflict, status, env.Message)
	assert.Equal(t, int32(1), shopee.calls.Load())

	close(shopee.release)
	wg.Wait()
	assert.Equal(t, http.StatusOK, allStatus)

	status, env = doJSON(t, r, http.MethodPost, "/api/coupon-capture/sync/shopee", "")
	require.Equal(t, http.StatusOK, status, env.Message)
	var res capture.PlatformResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.PlatformShopee, res.Platform)
	assert.Equal(t, 1, res.Found)
	assert.Equal(t, int32(2), shopee.calls.Load())
}

func TestErrorMapping(t *testing.T) {
	r := newTestEngine(t, nil)

	status, _ := doJSON(t, r, http.MethodPost, "/api/coupon-capture/sync/amazon", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, r, http.MethodPut, "/api/coupon-capture/coupons/missing/approve", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, r, http.MethodPost, "/api/coupon-capture/cron/cleanup/start", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, r, http.MethodPost, "/api/coupon-capture/cron/capture/pause", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestToggleAutoCaptureReschedules(t *testing.T) {
	r := newTestEngine(t, nil)

	status, _ := doJSON(t, r, http.MethodPost, "/api/coupon-capture/cron/capture/start", "")
	require.Equal(t, http.StatusOK, status)

	status, env := doJSON(t, r, http.MethodPost, "/api/coupon-capture/toggle-auto-capture", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, status)
	var cfg models.CouponSettings
	require.NoError(t, json.Unmarshal(env.Data, &cfg))
	assert.False(t, cfg.AutoCaptureEnabled)

	status, env = doJSON(t, r, http.MethodGet, "/api/coupon-capture/cron-status", "")
	require.Equal(t, http.StatusOK, status)
	var st map[string]scheduler.TaskStatus
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.False(t, st[scheduler.TaskCapture].Running)

	status, env = doJSON(t, r, http.MethodPut, "/api/coupon-capture/settings", `{"auto_capture_enabled":true,"capture_interval_minutes":120}`)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &cfg))
	assert.Equal(t, 120, cfg.CaptureIntervalMinutes)

	_, env = doJSON(t, r, http.MethodGet, "/api/coupon-capture/cron-status", "")
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.True(t, st[scheduler.TaskCapture].Running)
	assert.Equal(t, "0 */2 * * *", st[scheduler.TaskCapture].Spec)
}

func TestGuardRejectsAnonymous(t *testing.T) {
	j := auth.JWT{Secret: []byte("k"), TokenTTL: time.Hour}
	r := newTestEngine(t, auth.RequireRole(j, "admin"))

	status, _ := doJSON(t, r, http.MethodGet, "/api/coupon-capture/settings", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	tok, _, err := j.Sign(auth.Claims{Role: "admin"})
	require.NoError(t, err)
	status, _ = doJSON(t, r, http.MethodGet, "/api/coupon-capture/settings", "", "Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
}
