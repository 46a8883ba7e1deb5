package health

import (
	"testing"
	"time"

	"github.com/smallbiznis/retailpulse/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMonitor(t *testing.T) (*Monitor, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC))
	return NewMonitor(Config{}, clk, zap.NewNop()), clk
}

func TestMonitor_HealthyUnderCleanTraffic(t *testing.T) {
	monitor, clk := newTestMonitor(t)

	for i := 0; i < 60; i++ {
		monitor.Record(true, 200*time.Millisecond)
	}
	clk.Advance(time.Minute)

	snap := monitor.Snapshot()
	assert.Equal(t, StatusHealthy, snap.Status)
	assert.Equal(t, int64(60), snap.Processed)
	assert.Equal(t, int64(0), snap.Failed)
	assert.Equal(t, 0.0, snap.ErrorRate)
	assert.InDelta(t, 60.0, snap.ThroughputPerMin, 0.01)
	assert.Equal(t, 200*time.Millisecond, snap.AvgLatency)
}

func TestMonitor_ErrorRateClassification(t *testing.T) {
	monitor, _ := newTestMonitor(t)

	// 7 failures out of 100 crosses the degraded rate but not critical.
	for i := 0; i < 93; i++ {
		monitor.Record(true, 10*time.Millisecond)
	}
	for i := 0; i < 7; i++ {
		monitor.Record(false, 10*time.Millisecond)
	}
	assert.Equal(t, StatusDegraded, monitor.Snapshot().Status)

	// Pushing to 15 failures out of 108 crosses critical.
	for i := 0; i < 8; i++ {
		monitor.Record(false, 10*time.Millisecond)
	}
	snap := monitor.Snapshot()
	assert.Equal(t, StatusCritical, snap.Status)
	assert.Equal(t, int64(15), snap.Failed)
}

func TestMonitor_LatencyClassification(t *testing.T) {
	monitor, _ := newTestMonitor(t)

	monitor.Record(true, 3*time.Second)
	assert.Equal(t, StatusDegraded, monitor.Snapshot().Status)

	monitor.Record(true, 9*time.Second)
	assert.Equal(t, StatusCritical, monitor.Snapshot().Status)
}

func TestMonitor_ListenerFiresOnTransitionOnly(t *testing.T) {
	monitor, _ := newTestMonitor(t)

	type transition struct{ from, to string }
	var seen []transition
	monitor.SetListener(func(previous, current string, _ Snapshot) {
		seen = append(seen, transition{previous, current})
	})

	monitor.Record(true, 10*time.Millisecond)
	monitor.Record(true, 10*time.Millisecond)
	require.Empty(t, seen, "steady healthy traffic must not notify")

	monitor.Record(false, 10*time.Millisecond)
	require.Len(t, seen, 1)
	assert.Equal(t, transition{StatusHealthy, StatusCritical}, seen[0])

	monitor.Record(false, 10*time.Millisecond)
	assert.Len(t, seen, 1, "staying critical must not notify again")
}

func TestMonitor_Reset(t *testing.T) {
	monitor, clk := newTestMonitor(t)

	for i := 0; i < 10; i++ {
		monitor.Record(false, time.Second)
	}
	require.Equal(t, StatusCritical, monitor.Snapshot().Status)

	clk.Advance(time.Hour)
	monitor.Reset()

	snap := monitor.Snapshot()
	assert.Equal(t, StatusHealthy, snap.Status)
	assert.Equal(t, int64(0), snap.Processed)
	assert.Equal(t, int64(0), snap.Failed)
	assert.Equal(t, clk.Now(), snap.LastResetAt)
}

func TestMonitor_UntilNextResetAlignsToMidnight(t *testing.T) {
	monitor, _ := newTestMonitor(t)
	assert.Equal(t, 16*time.Hour, monitor.untilNextReset())

	clk := clock.NewFakeClock(time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC))
	hourly := NewMonitor(Config{ResetInterval: time.Hour}, clk, zap.NewNop())
	assert.Equal(t, time.Hour, hourly.untilNextReset())
}
