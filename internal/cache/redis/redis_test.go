package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "crossarb:")
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestReportCache(t *testing.T) {
	c, mr := newTestClient(t)
	rc := NewReportCache(c, time.Minute)
	ctx := context.Background()

	_, err := rc.GetLatest(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	report := domain.Report{
		ID:        "scan-1",
		StartedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		Duration:  3 * time.Second,
		Counts:    domain.ReportCounts{EventsA: 10, EventsB: 12, Matched: 4, HighConfidence: 3, Profitable: 1},
		Opportunities: []domain.OpportunitySummary{
			{League: "NBA", Date: "2026-02-01", Title: "Lakers at Celtics", Confidence: 1, Cost: 0.85},
		},
	}
	require.NoError(t, rc.SetLatest(ctx, report))
	assert.True(t, mr.Exists("crossarb:report:latest"))

	got, err := rc.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, report, got)

	mr.FastForward(2 * time.Minute)
	_, err = rc.GetLatest(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuoteCache(t *testing.T) {
	c, mr := newTestClient(t)
	qc := NewQuoteCache(c, 30*time.Second)
	ctx := context.Background()

	_, err := qc.GetQuote(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, qc.SetQuote(ctx, "tok", 0.4321))
	p, err := qc.GetQuote(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, 0.4321, p)

	mr.FastForward(31 * time.Second)
	_, err = qc.GetQuote(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLockManager(t *testing.T) {
	c, _ := newTestClient(t)
	lm := NewLockManager(c)
	ctx := context.Background()

	unlock, err := lm.Acquire(ctx, "scan", time.Minute)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, "scan", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	unlock()
	unlock()

	unlock2, err := lm.Acquire(ctx, "scan", time.Minute)
	require.NoError(t, err)
	unlock2()
}

func TestLockManager_StaleUnlockKeepsNewHolder(t *testing.T) {
	c, mr := newTestClient(t)
	lm := NewLockManager(c)
	ctx := context.Background()

	stale, err := lm.Acquire(ctx, "scan", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	_, err = lm.Acquire(ctx, "scan", time.Minute)
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists("crossarb:lock:scan"))
}

func TestRateLimiter(t *testing.T) {
	c, _ := newTestClient(t)
	rl := NewRateLimiter(c)
	ctx := context.Background()

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "kalshi", 3, time.Second)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := rl.Allow(ctx, "kalshi", 3, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = rl.Allow(ctx, "polymarket", 3, time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	now = now.Add(1100 * time.Millisecond)
	ok, err = rl.Allow(ctx, "kalshi", 3, time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "the window slides")
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	c, _ := newTestClient(t)
	rl := NewRateLimiter(c)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	require.NoError(t, rl.Wait(context.Background(), "k", 1, time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := rl.Wait(ctx, "k", 1, time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSignalBus(t *testing.T) {
	c, _ := newTestClient(t)
	bus := NewSignalBus(c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := bus.Subscribe(ctx, domain.ChannelArb)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, domain.ChannelArb, []byte(`{"id":"scan-1"}`)))

	select {
	case m := <-msgs:
		assert.JSONEq(t, `{"id":"scan-1"}`, string(m))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-msgs
		return !open
	}, 2*time.Second, 10*time.Millisecond)
}
