// Package scheduler runs capture, expiration and verification on cron
// schedules and exposes the admin control plane over them.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adhocore/gronx"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/capture"
	cronrunner "github.com/RDL-Tech-Solutions/MTW-sub002/internal/cron"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/events"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/lease"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/metrics"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
)

const (
	TaskCapture      = "capture"
	TaskExpiration   = "expiration"
	TaskVerification = "verification"
)

const (
	DefaultExpirationSpec   = "0 */6 * * *"
	DefaultVerificationSpec = "0 3 * * *"
)

var (
	ErrUnknownTask    = errors.New("unknown scheduler task")
	ErrTaskRunning    = errors.New("task already executing")
	ErrCaptureRunning = fmt.Errorf("capture: %w", ErrTaskRunning)
	errLeaseHeld      = errors.New("task lease held elsewhere")
)

// Capturer is the work the scheduled tasks drive.
type Capturer interface {
	CaptureAll(ctx context.Context) (capture.CaptureAllResult, error)
	CapturePlatform(ctx context.Context, platform string) (capture.PlatformResult, error)
	CheckExpiredCoupons(ctx context.Context) (capture.ExpirationResult, error)
	VerifyActiveCoupons(ctx context.Context, ids []string) (capture.VerificationResult, error)
}

type SettingsReader interface {
	Get(ctx context.Context) (models.CouponSettings, error)
}

type LedgerCleaner interface {
	Cleanup(ctx context.Context, daysToKeep int) (int64, error)
}

type Config struct {
	ExpirationSpec   string
	VerificationSpec string
	// RetentionDays prunes the sync ledger after each verification sweep.
	// Zero disables pruning.
	RetentionDays int
	LeaseTTL      time.Duration
	Location      *time.Location
}

type TaskStatus struct {
	Name      string     `json:"name"`
	Running   bool       `json:"running"`
	Executing bool       `json:"executing"`
	Spec      string     `json:"spec,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
}

type task struct {
	name      string
	spec      string
	entry     cron.EntryID
	scheduled bool
	executing atomic.Bool
}

type Scheduler struct {
	Capture  Capturer
	Settings SettingsReader
	Cleaner  LedgerCleaner
	Locker   lease.Locker
	Metrics  *metrics.Metrics
	Events   *events.Broadcaster
	Logger   *zap.Logger
	Now      func() time.Time

	cfg    Config
	runner *cronrunner.Runner

	mu    sync.Mutex
	tasks map[string]*task
}

func New(cfg Config, capturer Capturer, settings SettingsReader, logger *zap.Logger, baseCtx context.Context) *Scheduler {
	if cfg.ExpirationSpec == "" {
		cfg.ExpirationSpec = DefaultExpirationSpec
	}
	if cfg.VerificationSpec == "" {
		cfg.VerificationSpec = DefaultVerificationSpec
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 2 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Capture:  capturer,
		Settings: settings,
		Locker:   lease.Nop{},
		Logger:   logger,
		cfg:      cfg,
		runner:   cronrunner.New(logger, baseCtx, cronrunner.WithLocation(cfg.Location)),
		tasks: map[string]*task{
			TaskCapture:      {name: TaskCapture},
			TaskExpiration:   {name: TaskExpiration, spec: cfg.ExpirationSpec},
			TaskVerification: {name: TaskVerification, spec: cfg.VerificationSpec},
		},
	}
}

// MinutesToCronExpression converts a capture interval to a five-field spec.
// Intervals above an hour round down to whole hours.
func MinutesToCronExpression(minutes int) string {
	minutes = models.ClampInterval(minutes)
	switch {
	case minutes == 1:
		return "* * * * *"
	case minutes < 60:
		return fmt.Sprintf("*/%d * * * *", minutes)
	case minutes == 60:
		return "0 * * * *"
	case minutes == models.MaxCaptureIntervalMinutes:
		return "0 0 * * *"
	default:
		return fmt.Sprintf("0 */%d * * *", minutes/60)
	}
}

// StartAll schedules every task and starts the cron loop. The capture task
// is left unscheduled while auto capture is disabled.
func (s *Scheduler) StartAll(ctx context.Context) error {
	var errs []error
	for _, name := range []string{TaskCapture, TaskExpiration, TaskVerification} {
		if err := s.StartTask(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("start %s: %w", name, err))
		}
	}
	s.runner.Start()
	s.Logger.Info("scheduler started")
	return errors.Join(errs...)
}

// StopAll unschedules every task. Executions in flight finish on their own.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		s.unscheduleLocked(t)
	}
	s.Logger.Info("scheduler tasks stopped")
}

// Shutdown stops scheduling and waits for running executions.
func (s *Scheduler) Shutdown() {
	s.StopAll()
	s.runner.Stop()
}

func (s *Scheduler) StartTask(ctx context.Context, name string) error {
	t, err := s.task(name)
	if err != nil {
		return err
	}
	spec := t.spec
	if name == TaskCapture {
		cfg, err := s.settings(ctx)
		if err != nil {
			return fmt.Errorf("load capture settings: %w", err)
		}
		if !cfg.AutoCaptureEnabled {
			s.Logger.Info("auto capture disabled, capture task not scheduled")
			s.StopTask(name)
			return nil
		}
		spec = MinutesToCronExpression(cfg.CaptureIntervalMinutes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.unscheduleLocked(t)
	id, err := s.runner.Add(spec, func(ctx context.Context) {
		_ = s.execute(ctx, t, "cron", s.body(name))
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	t.spec = spec
	t.entry = id
	t.scheduled = true
	s.Logger.Info("task scheduled", zap.String("task", name), zap.String("spec", spec))
	return nil
}

func (s *Scheduler) StopTask(name string) error {
	t, err := s.task(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unscheduleLocked(t)
	return nil
}

// RestartCaptureJob re-reads settings after an interval or toggle change.
func (s *Scheduler) RestartCaptureJob(ctx context.Context) error {
	return s.StartTask(ctx, TaskCapture)
}

// RunManualCapture runs a capture now on the caller's goroutine.
func (s *Scheduler) RunManualCapture(ctx context.Context) (capture.CaptureAllResult, error) {
	var out capture.CaptureAllResult
	err := s.execute(ctx, s.tasks[TaskCapture], "manual", func(ctx context.Context) error {
		res, err := s.Capture.CaptureAll(ctx)
		out = res
		return err
	})
	if errors.Is(err, ErrTaskRunning) {
		return out, ErrCaptureRunning
	}
	return out, err
}

// RunPlatformCapture captures one platform under the capture task guard, so
// it never overlaps a scheduled or manual full capture.
func (s *Scheduler) RunPlatformCapture(ctx context.Context, platform string) (capture.PlatformResult, error) {
	var out capture.PlatformResult
	err := s.execute(ctx, s.tasks[TaskCapture], "manual", func(ctx context.Context) error {
		res, err := s.Capture.CapturePlatform(ctx, platform)
		out = res
		return err
	})
	if errors.Is(err, ErrTaskRunning) {
		return out, ErrCaptureRunning
	}
	return out, err
}

func (s *Scheduler) RunExpirationNow(ctx context.Context) (capture.ExpirationResult, error) {
	var out capture.ExpirationResult
	err := s.execute(ctx, s.tasks[TaskExpiration], "manual", func(ctx context.Context) error {
		res, err := s.Capture.CheckExpiredCoupons(ctx)
		out = res
		return err
	})
	return out, err
}

// RunVerificationNow verifies ids, or the active batch when ids is empty.
func (s *Scheduler) RunVerificationNow(ctx context.Context, ids []string) (capture.VerificationResult, error) {
	var out capture.VerificationResult
	err := s.execute(ctx, s.tasks[TaskVerification], "manual", func(ctx context.Context) error {
		res, err := s.Capture.VerifyActiveCoupons(ctx, ids)
		out = res
		return err
	})
	return out, err
}

func (s *Scheduler) Status() map[string]TaskStatus {
	now := s.now().In(s.cfg.Location)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]TaskStatus, len(s.tasks))
	for name, t := range s.tasks {
		st := TaskStatus{
			Name:      name,
			Running:   t.scheduled,
			Executing: t.executing.Load(),
		}
		if t.scheduled {
			st.Spec = t.spec
			// scheduler clock, so the value is known before the runner starts
			if next, err := gronx.NextTickAfter(t.spec, now, false); err == nil {
				st.NextRun = &next
			}
		}
		out[name] = st
	}
	return out
}

func (s *Scheduler) body(name string) func(ctx context.Context) error {
	switch name {
	case TaskCapture:
		return func(ctx context.Context) error {
			res, err := s.Capture.CaptureAll(ctx)
			if err != nil {
				return err
			}
			if !res.Success {
				s.Logger.Info("scheduled capture did not run", zap.String("reason", res.Message))
			}
			return nil
		}
	case TaskExpiration:
		return func(ctx context.Context) error {
			_, err := s.Capture.CheckExpiredCoupons(ctx)
			return err
		}
	default:
		return func(ctx context.Context) error {
			if _, err := s.Capture.VerifyActiveCoupons(ctx, nil); err != nil {
				return err
			}
			s.pruneLedger(ctx)
			return nil
		}
	}
}

func (s *Scheduler) pruneLedger(ctx context.Context) {
	if s.Cleaner == nil || s.cfg.RetentionDays <= 0 {
		return
	}
	if _, err := s.Cleaner.Cleanup(ctx, s.cfg.RetentionDays); err != nil {
		s.Logger.Warn("sync log cleanup failed", zap.Error(err))
	}
}

// execute guards one run of t: at most one execution per task in this
// process, and per lease key across processes. Panics are recovered.
func (s *Scheduler) execute(ctx context.Context, t *task, trigger string, run func(context.Context) error) (err error) {
	log := s.Logger.With(zap.String("task", t.name), zap.String("trigger", trigger))
	if !t.executing.CompareAndSwap(false, true) {
		s.skipped(log, t.name, "busy")
		return ErrTaskRunning
	}
	defer t.executing.Store(false)

	release, ok, lerr := s.locker().Acquire(ctx, t.name, s.cfg.LeaseTTL)
	switch {
	case lerr != nil:
		log.Warn("task lease unavailable, running without it", zap.Error(lerr))
	case !ok:
		s.skipped(log, t.name, "lease")
		return errLeaseHeld
	default:
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				log.Warn("task lease release failed", zap.Error(rerr))
			}
		}()
	}

	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.name, r)
		}
		result := "ok"
		if err != nil {
			result = "error"
			log.Error("task failed", zap.Error(err))
		}
		s.Metrics.ObserveTask(t.name, result, s.now().Sub(start))
	}()

	log.Info("task started")
	return run(ctx)
}

func (s *Scheduler) skipped(log *zap.Logger, name, reason string) {
	log.Info("task still executing, skipping this fire", zap.String("reason", reason))
	s.Metrics.TaskSkipped(name, reason)
	s.Events.Publish(events.Event{Type: events.TypeTaskSkipped, Data: map[string]any{"task": name, "reason": reason}})
}

func (s *Scheduler) unscheduleLocked(t *task) {
	if !t.scheduled {
		return
	}
	s.runner.Remove(t.entry)
	t.scheduled = false
	t.entry = 0
	s.Logger.Info("task unscheduled", zap.String("task", t.name))
}

func (s *Scheduler) task(name string) (*task, error) {
	t, ok := s.tasks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return t, nil
}

func (s *Scheduler) settings(ctx context.Context) (models.CouponSettings, error) {
	if s.Settings == nil {
		return models.DefaultCouponSettings(), nil
	}
	return s.Settings.Get(ctx)
}

func (s *Scheduler) locker() lease.Locker {
	if s.Locker == nil {
		return lease.Nop{}
	}
	return s.Locker
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
