package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GatewayMetrics exposes the broadcast gateway's prometheus instruments.
type GatewayMetrics struct {
	connections prometheus.Gauge
	frames      *prometheus.CounterVec
	dropped     prometheus.Counter
}

var (
	gatewayOnce sync.Once
	gateway     *GatewayMetrics
)

func Gateway() *GatewayMetrics {
	gatewayOnce.Do(func() {
		gateway = &GatewayMetrics{
			connections: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "connections",
				Help:      "Live dashboard connections.",
			}),
			frames: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "frames_total",
				Help:      "Outbound frames by message type.",
			}, []string{"type"}),
			dropped: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "frames_dropped_total",
				Help:      "Frames dropped because a connection's send buffer was full.",
			}),
		}
	})
	return gateway
}

func (m *GatewayMetrics) SetConnections(n int) { m.connections.Set(float64(n)) }

func (m *GatewayMetrics) IncFrame(kind string) { m.frames.WithLabelValues(kind).Inc() }

func (m *GatewayMetrics) IncDropped() { m.dropped.Inc() }
