package cronrunner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_FiveFieldSpecs(t *testing.T) {
	r := New(nil, context.Background())

	_, err := r.Add("*/5 * * * * *", func(context.Context) {})
	assert.Error(t, err, "seconds field is not accepted")

	id, err := r.Add("0 */6 * * *", func(context.Context) {})
	require.NoError(t, err)

	r.Start()
	defer r.Stop()
	next := r.cron.Entry(id).Next
	require.False(t, next.IsZero())
	assert.Equal(t, 0, next.Minute())
	assert.Equal(t, 0, next.Hour()%6)
	assert.Equal(t, time.UTC, next.Location())

	r.Remove(id)
	assert.True(t, r.cron.Entry(id).Next.IsZero())
}

func TestRunner_StartStopIdempotent(t *testing.T) {
	r := New(nil, nil)
	r.Stop()
	r.Start()
	r.Start()
	r.Stop()
	r.Stop()
}
