package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/models"
	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/repository/memory"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLedger() (*Ledger, *clock) {
	c := &clock{t: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)}
	seq := 0
	l := New(memory.New(), nil)
	l.Now = c.now
	l.NewID = func() string {
		seq++
		return fmt.Sprintf("run-%03d", seq)
	}
	return l, c
}

func TestLedger_CompleteRecordsCountersAndDuration(t *testing.T) {
	l, c := newTestLedger()
	ctx := context.Background()

	run, err := l.Create(ctx, models.PlatformShopee, "")
	require.NoError(t, err)
	assert.Equal(t, models.SyncTypeCapture, run.SyncType)
	assert.Equal(t, models.SyncStatusRunning, run.Status)

	c.t = c.t.Add(1500 * time.Millisecond)
	require.NoError(t, l.Complete(ctx, run.ID, Results{Found: 4, Created: 2, Updated: 1, Errors: 1}))

	logs, err := l.FindByPlatform(ctx, models.PlatformShopee, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	got := logs[0]
	assert.Equal(t, models.SyncStatusCompleted, got.Status)
	assert.Equal(t, int64(1500), got.DurationMs)
	assert.Equal(t, 4, got.CouponsFound)
	assert.Equal(t, 2, got.CouponsCreated)
	assert.Equal(t, 1, got.CouponsUpdated)
	assert.Equal(t, 1, got.Errors)
	require.NotNil(t, got.CompletedAt)
}

func TestLedger_FailStoresDetail(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	run, err := l.Create(ctx, models.PlatformGatry, models.SyncTypeCapture)
	require.NoError(t, err)
	require.NoError(t, l.Fail(ctx, run.ID, "feed timeout"))

	page, err := l.FindRecent(ctx, 10, Filters{Status: models.SyncStatusFailed}, 1)
	require.NoError(t, err)
	require.Len(t, page.Logs, 1)
	assert.Equal(t, 1, page.Logs[0].Errors)
	require.NotNil(t, page.Logs[0].ErrorDetails)
	assert.Equal(t, "feed timeout", *page.Logs[0].ErrorDetails)
}

func TestLedger_FindRecentPaginatesNewestFirst(t *testing.T) {
	l, c := newTestLedger()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := l.Create(ctx, models.PlatformShopee, models.SyncTypeCapture)
		require.NoError(t, err)
		c.t = c.t.Add(time.Minute)
	}

	first, err := l.FindRecent(ctx, 2, Filters{}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), first.Total)
	assert.Equal(t, 3, first.TotalPages)
	require.Len(t, first.Logs, 2)
	assert.Equal(t, "run-005", first.Logs[0].ID)

	last, err := l.FindRecent(ctx, 2, Filters{}, 3)
	require.NoError(t, err)
	require.Len(t, last.Logs, 1)
	assert.Equal(t, "run-001", last.Logs[0].ID)
}

func TestLedger_GetStats(t *testing.T) {
	l, c := newTestLedger()
	ctx := context.Background()

	a, err := l.Create(ctx, models.PlatformShopee, models.SyncTypeCapture)
	require.NoError(t, err)
	c.t = c.t.Add(2 * time.Second)
	require.NoError(t, l.Complete(ctx, a.ID, Results{Found: 3, Created: 3}))

	b, err := l.Create(ctx, models.PlatformShopee, models.SyncTypeCapture)
	require.NoError(t, err)
	c.t = c.t.Add(4 * time.Second)
	require.NoError(t, l.Complete(ctx, b.ID, Results{Found: 2, Updated: 2}))

	f, err := l.Create(ctx, models.PlatformMercadoLivre, models.SyncTypeCapture)
	require.NoError(t, err)
	require.NoError(t, l.Fail(ctx, f.ID, "boom"))

	_, err = l.Create(ctx, models.PlatformShopee, models.SyncTypeCapture)
	require.NoError(t, err)

	shopee, err := l.GetStats(ctx, models.PlatformShopee, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, shopee.TotalSyncs)
	assert.Equal(t, 2, shopee.Successful)
	assert.Equal(t, 1, shopee.Running)
	assert.Equal(t, 5, shopee.TotalCouponsFound)
	assert.Equal(t, 3, shopee.TotalCreated)
	assert.Equal(t, 2, shopee.TotalUpdated)
	assert.InDelta(t, 3000, shopee.AvgDurationMs, 0.001)

	all, err := l.GetStats(ctx, "", 7)
	require.NoError(t, err)
	assert.Equal(t, 4, all.TotalSyncs)
	assert.Equal(t, 1, all.Failed)
}

func TestLedger_CleanupKeepsRecentRuns(t *testing.T) {
	l, c := newTestLedger()
	ctx := context.Background()

	_, err := l.Create(ctx, models.PlatformShopee, models.SyncTypeCapture)
	require.NoError(t, err)
	c.t = c.t.Add(40 * 24 * time.Hour)
	_, err = l.Create(ctx, models.PlatformShopee, models.SyncTypeCapture)
	require.NoError(t, err)

	n, err := l.Cleanup(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	page, err := l.FindRecent(ctx, 10, Filters{}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, "run-002", page.Logs[0].ID)
}
