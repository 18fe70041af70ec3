package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains module-wide metrics shared by every queue and pool
type Metrics struct {
	QueuesActive prometheus.Gauge
	QueueErrors  *prometheus.CounterVec
	PoolsActive  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all module metrics
func NewMetrics() *Metrics {
	return &Metrics{
		QueuesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "semqueue",
				Subsystem: "queue",
				Name:      "active",
				Help:      "Number of blocking queues created and not yet closed",
			},
		),

		QueueErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semqueue",
				Subsystem: "queue",
				Name:      "errors_total",
				Help:      "Queue operation errors by class (transient, invalid, fatal)",
			},
			[]string{"component", "class"},
		),

		PoolsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "semqueue",
				Subsystem: "worker_pool",
				Name:      "active",
				Help:      "Number of started worker pools",
			},
		),
	}
}

// RecordQueueOpened increments the active queue gauge
func (c *Metrics) RecordQueueOpened() {
	c.QueuesActive.Inc()
}

// RecordQueueClosed decrements the active queue gauge
func (c *Metrics) RecordQueueClosed() {
	c.QueuesActive.Dec()
}

// RecordQueueError increments the error counter for a queue's metrics component
func (c *Metrics) RecordQueueError(component, class string) {
	c.QueueErrors.WithLabelValues(component, class).Inc()
}

// RecordPoolStarted increments the active pool gauge
func (c *Metrics) RecordPoolStarted() {
	c.PoolsActive.Inc()
}

// RecordPoolStopped decrements the active pool gauge
func (c *Metrics) RecordPoolStopped() {
	c.PoolsActive.Dec()
}
