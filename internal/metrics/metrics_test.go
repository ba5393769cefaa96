package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ExposesCounters(t *testing.T) {
	m := New()
	m.ObserveRun("shopee", "completed")
	m.ObserveRun("shopee", "completed")
	m.AddCoupons("shopee", "created", 3)
	m.TaskSkipped("capture", "busy")
	m.CouponsExpired(2)
	m.ObserveTask("capture", "ok", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `coupon_capture_sync_runs_total{platform="shopee",status="completed"} 2`)
	assert.Contains(t, body, `coupon_capture_coupons_total{outcome="created",platform="shopee"} 3`)
	assert.Contains(t, body, `coupon_capture_task_skipped_total{reason="busy",task="capture"} 1`)
	assert.Contains(t, body, "coupon_capture_coupons_expired_total 2")
}

func TestMetrics_Gather(t *testing.T) {
	m := New()
	m.CouponVerified("meli", false)
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if strings.HasSuffix(f.GetName(), "coupons_verified_total") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRun("x", "failed")
	m.AddCoupons("x", "found", 1)
	m.TaskSkipped("capture", "busy")
	assert.NotNil(t, m.Handler())
}
