package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "retailpulse"

// PipelineMetrics exposes the pipeline's prometheus instruments. One
// process-wide instance, lazily registered on the default registry.
type PipelineMetrics struct {
	jobsTotal      *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobRetries     prometheus.Counter
	queueDepth     prometheus.Gauge
	failedRetained prometheus.Gauge
}

var (
	pipelineOnce sync.Once
	pipeline     *PipelineMetrics
)

func Pipeline() *PipelineMetrics {
	pipelineOnce.Do(func() {
		pipeline = &PipelineMetrics{
			jobsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "jobs_total",
				Help:      "Job attempts by event kind and result.",
			}, []string{"kind", "result"}),
			jobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "job_duration_seconds",
				Help:      "Job handler duration by event kind.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			}, []string{"kind"}),
			jobRetries: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "job_retries_total",
				Help:      "Jobs re-queued under the backoff policy.",
			}),
			queueDepth: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "queue_depth",
				Help:      "Jobs waiting in the ready queue.",
			}),
			failedRetained: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "failed_retained",
				Help:      "Terminally failed jobs held for operator inspection.",
			}),
		}
	})
	return pipeline
}

func (m *PipelineMetrics) ObserveJob(kind, result string, duration time.Duration) {
	m.jobsTotal.WithLabelValues(kind, result).Inc()
	m.jobDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *PipelineMetrics) IncRetry() { m.jobRetries.Inc() }

func (m *PipelineMetrics) SetQueueDepth(n int64) { m.queueDepth.Set(float64(n)) }

func (m *PipelineMetrics) SetFailedCount(n int) { m.failedRetained.Set(float64(n)) }
