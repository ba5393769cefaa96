// Package retry runs storage and upstream calls under capped exponential
// backoff. Whether a failure is worth retrying is decided from typed errors,
// never from message text.
package retry

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = 10 * time.Second
)

type Options struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	ShouldRetry  func(error) bool
	OnRetry      func(attempt int, delay time.Duration, err error)

	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Options)

func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

func WithInitialDelay(d time.Duration) Option {
	return func(o *Options) { o.InitialDelay = d }
}

func WithMaxDelay(d time.Duration) Option {
	return func(o *Options) { o.MaxDelay = d }
}

func WithShouldRetry(fn func(error) bool) Option {
	return func(o *Options) { o.ShouldRetry = fn }
}

// WithOnRetry registers a hook fired before each backoff sleep.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(o *Options) { o.OnRetry = fn }
}

// WithPolicy applies a preconfigured policy, e.g. one loaded from config.
func WithPolicy(p Policy) Option {
	return func(o *Options) {
		if p.MaxRetries > 0 {
			o.MaxRetries = p.MaxRetries
		}
		if p.InitialDelay > 0 {
			o.InitialDelay = p.InitialDelay
		}
		if p.MaxDelay > 0 {
			o.MaxDelay = p.MaxDelay
		}
	}
}

// Policy is the config-facing subset of Options.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func defaults() Options {
	return Options{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		ShouldRetry:  IsTransient,
		sleep:        sleepCtx,
	}
}

// Do runs op once plus up to MaxRetries retries.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	_, err := DoValue(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

func DoValue[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := defaults()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.ShouldRetry == nil {
		o.ShouldRetry = IsTransient
	}
	if o.MaxDelay > 0 && o.InitialDelay > o.MaxDelay {
		o.InitialDelay = o.MaxDelay
	}

	var zero T
	delay := o.InitialDelay
	var lastErr error
	for attempt := 0; attempt <= o.MaxRetries; attempt++ {
		val, err := op(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err
		if attempt == o.MaxRetries || !o.ShouldRetry(err) {
			break
		}
		if o.OnRetry != nil {
			o.OnRetry(attempt+1, delay, err)
		}
		if err := o.sleep(ctx, delay); err != nil {
			return zero, errors.Join(lastErr, err)
		}
		delay *= 2
		if o.MaxDelay > 0 && delay > o.MaxDelay {
			delay = o.MaxDelay
		}
	}
	return zero, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
