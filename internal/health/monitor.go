package health

import (
	"sync"
	"time"

	"github.com/smallbiznis/retailpulse/internal/clock"
	"go.uber.org/zap"
)

// Pipeline status labels.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
)

// Snapshot is the immutable read view of the monitor. All rates are derived
// at snapshot time from the raw counters.
type Snapshot struct {
	Status           string        `json:"status"`
	Processed        int64         `json:"processed"`
	Failed           int64         `json:"failed"`
	ErrorRate        float64       `json:"error_rate"`
	ThroughputPerMin float64       `json:"throughput_per_min"`
	AvgLatency       time.Duration `json:"avg_latency_ms"`
	StartedAt        time.Time     `json:"started_at"`
	LastResetAt      time.Time     `json:"last_reset_at"`
}

// Listener is notified when the derived status changes, e.g. to persist an
// operational alert and fan it out to dashboard viewers.
type Listener func(previous, current string, snap Snapshot)

// Monitor owns the pipeline's rolling counters. Counters advance once per
// job attempt; reads are snapshot-consistent; Reset is the only mutation
// exposed beyond Record.
type Monitor struct {
	mu          sync.Mutex
	cfg         Config
	clock       clock.Clock
	log         *zap.Logger
	listener    Listener
	processed   int64
	failed      int64
	totalTime   time.Duration
	startedAt   time.Time
	lastResetAt time.Time
	lastStatus  string
}

func NewMonitor(cfg Config, clk clock.Clock, log *zap.Logger) *Monitor {
	now := clk.Now()
	return &Monitor{
		cfg:         cfg.withDefaults(),
		clock:       clk,
		log:         log.Named("health"),
		startedAt:   now,
		lastResetAt: now,
		lastStatus:  StatusHealthy,
	}
}

// SetListener installs the status-transition callback. Must be called before
// the pipeline starts recording.
func (m *Monitor) SetListener(l Listener) {
	m.mu.Lock()
	m.listener = l
	m.mu.Unlock()
}

// Record counts one job attempt. Retries count as separate attempts.
func (m *Monitor) Record(success bool, duration time.Duration) {
	m.mu.Lock()
	m.processed++
	if !success {
		m.failed++
	}
	m.totalTime += duration

	snap := m.snapshotLocked()
	previous := m.lastStatus
	m.lastStatus = snap.Status
	listener := m.listener
	m.mu.Unlock()

	if listener != nil && previous != snap.Status {
		listener(previous, snap.Status, snap)
	}
}

// Snapshot returns the current derived view without mutating state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Reset zeroes the counters. Runs on the daily schedule, never on traffic.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.processed = 0
	m.failed = 0
	m.totalTime = 0
	m.lastResetAt = m.clock.Now()
	m.lastStatus = StatusHealthy
	m.mu.Unlock()
	m.log.Info("health counters reset")
}

func (m *Monitor) snapshotLocked() Snapshot {
	snap := Snapshot{
		Processed:   m.processed,
		Failed:      m.failed,
		StartedAt:   m.startedAt,
		LastResetAt: m.lastResetAt,
	}
	if m.processed > 0 {
		snap.ErrorRate = float64(m.failed) / float64(m.processed)
		snap.AvgLatency = m.totalTime / time.Duration(m.processed)
	}
	elapsed := m.clock.Now().Sub(m.lastResetAt).Minutes()
	if elapsed > 0 {
		snap.ThroughputPerMin = float64(m.processed) / elapsed
	}
	snap.Status = m.classify(snap)
	return snap
}

func (m *Monitor) classify(snap Snapshot) string {
	switch {
	case snap.ErrorRate > m.cfg.ErrorRateCritical || snap.AvgLatency > m.cfg.LatencyCritical:
		return StatusCritical
	case snap.ErrorRate > m.cfg.ErrorRateDegraded || snap.AvgLatency > m.cfg.LatencyDegraded:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}
