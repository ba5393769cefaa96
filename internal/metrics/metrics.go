package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coupon_capture"

// Metrics is nil-safe so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	coupons     *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	taskSkips   *prometheus.CounterVec
	taskRuns    *prometheus.CounterVec
	verified    *prometheus.CounterVec
	expired     prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Capture runs per platform by final status.",
		}, []string{"platform", "status"}),
		coupons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupons_total",
			Help:      "Candidates handled per platform by outcome.",
		}, []string{"platform", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of scheduled task runs.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"task"}),
		taskSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_skipped_total",
			Help:      "Scheduled fires skipped because a run was in flight.",
		}, []string{"task", "reason"}),
		taskRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_runs_total",
			Help:      "Scheduled task executions by result.",
		}, []string{"task", "result"}),
		verified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupons_verified_total",
			Help:      "Re-verification outcomes.",
		}, []string{"platform", "result"}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupons_expired_total",
			Help:      "Coupons deactivated by the expiration sweep.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runs,
		m.coupons,
		m.runDuration,
		m.taskSkips,
		m.taskRuns,
		m.verified,
		m.expired,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRun(platform, status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(platform, status).Inc()
}

func (m *Metrics) AddCoupons(platform, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.coupons.WithLabelValues(platform, outcome).Add(float64(n))
}

func (m *Metrics) ObserveTask(task, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.taskRuns.WithLabelValues(task, result).Inc()
	m.runDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (m *Metrics) TaskSkipped(task, reason string) {
	if m == nil {
		return
	}
	m.taskSkips.WithLabelValues(task, reason).Inc()
}

func (m *Metrics) CouponVerified(platform string, valid bool) {
	if m == nil {
		return
	}
	result := "valid"
	if !valid {
		result = "invalid"
	}
	m.verified.WithLabelValues(platform, result).Inc()
}

func (m *Metrics) CouponsExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expired.Add(float64(n))
}
