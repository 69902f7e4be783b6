package scan

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/notify"
)

// countingSource fails its first fail fetches and counts every call.
type countingSource struct {
	fakeSource
	calls atomic.Int32
	fail  int32
}

func (c *countingSource) Fetch(ctx context.Context) ([]domain.CanonicalEvent, error) {
	if n := c.calls.Add(1); n <= c.fail {
		return nil, domain.ErrTransient
	}
	return c.fakeSource.Fetch(ctx)
}

func TestRunLoop_PacingAndFailureAlerts(t *testing.T) {
	h := newHarness()
	src := &countingSource{fakeSource: *kalshiSource(), fail: 1}
	h.deps.Kalshi = src
	h.deps.NewID = nil
	h.deps.Now = nil

	cfg := DefaultConfig()
	cfg.ErrorPause = time.Millisecond
	cfg.ProfitablePause = time.Hour
	s, err := New(cfg, h.deps)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.RunLoop(ctx) }()

	// One failed scan, a short error pause, then a profitable scan that
	// parks the loop on the hour-long pause.
	require.Eventually(t, func() bool { return src.calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(h.sender.events()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{notify.EventScanFailed, notify.EventArbDetected}, h.sender.events())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), src.calls.Load())

	assert.True(t, s.Trigger())
	require.Eventually(t, func() bool { return src.calls.Load() == 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestRunLoop_IdleRescansImmediately(t *testing.T) {
	h := newHarness()
	poly := &countingSource{fakeSource: fakeSource{venue: domain.VenuePolymarket}}
	h.deps.Polymarket = poly
	h.deps.NewID = nil
	h.deps.Now = nil

	cfg := DefaultConfig()
	cfg.IdlePause = 0
	s, err := New(cfg, h.deps)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.RunLoop(ctx) }()

	require.Eventually(t, func() bool { return poly.calls.Load() >= 5 }, 2*time.Second, time.Millisecond)
	cancel()
	<-done
	assert.Empty(t, h.sender.events())
}

func TestTriggerCoalesces(t *testing.T) {
	s, err := New(DefaultConfig(), Deps{Kalshi: kalshiSource(), Polymarket: polymarketSource()})
	require.NoError(t, err)
	assert.True(t, s.Trigger())
	assert.False(t, s.Trigger())
}
