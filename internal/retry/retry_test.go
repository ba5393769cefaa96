package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_RetriesGatewayErrorsThenSucceeds(t *testing.T) {
	initial := 20 * time.Millisecond
	calls := 0
	start := time.Now()
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls <= 2 {
			return FromStatus(http.StatusBadGateway, nil)
		}
		return nil
	}, WithInitialDelay(initial), WithMaxDelay(time.Second))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, elapsed, initial+2*initial)
}

func TestDo_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("constraint violated")
	start := time.Now()
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	}, WithInitialDelay(time.Second))

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	calls := 0
	o := func(o *Options) {
		o.sleep = func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		}
	}
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return FromStatus(http.StatusServiceUnavailable, nil)
	}, o, WithInitialDelay(4*time.Second), WithMaxDelay(10*time.Second))

	require.Error(t, err)
	assert.Equal(t, DefaultMaxRetries+1, calls)
	assert.Equal(t, []time.Duration{4 * time.Second, 8 * time.Second, 10 * time.Second}, delays)
}

func TestDo_ContextCancelAbortsSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, func(ctx context.Context) error {
			calls++
			cancel()
			return Transient(errors.New("flaky"))
		}, WithInitialDelay(time.Hour))
	}()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatalf("retry did not stop on cancel")
	}
}

func TestDoValue_ReturnsValue(t *testing.T) {
	calls := 0
	v, err := DoValue(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, Transient(errors.New("once"))
		}
		return 42, nil
	}, WithInitialDelay(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

type fakeSQLErr struct{ code string }

func (e fakeSQLErr) Error() string    { return "sql " + e.code }
func (e fakeSQLErr) SQLState() string { return e.code }

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"502", FromStatus(http.StatusBadGateway, nil), KindTransient},
		{"503", FromStatus(http.StatusServiceUnavailable, nil), KindTransient},
		{"504", FromStatus(http.StatusGatewayTimeout, nil), KindTransient},
		{"404", FromStatus(http.StatusNotFound, nil), KindPermanent},
		{"reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, KindTransient},
		{"dns", &net.DNSError{Err: "no such host", Name: "x"}, KindTransient},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"canceled", context.Canceled, KindPermanent},
		{"pg connection", fakeSQLErr{code: "08006"}, KindTransient},
		{"pg unique", fakeSQLErr{code: "23505"}, KindPermanent},
		{"plain text", errors.New("bad gateway"), KindPermanent},
		{"wrapped", errors.Join(errors.New("save"), Transient(errors.New("x"))), KindTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}
