package blockingqueue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/semqueue/errors"
	"github.com/c360/semqueue/metric"
)

// queueMetrics holds Prometheus metrics for one queue.
type queueMetrics struct {
	registry *metric.MetricsRegistry
	prefix   string
	names    []string // registered metric names, for Unregister on Close

	enqueues      prometheus.Counter
	dequeues      prometheus.Counter
	rejected      prometheus.Counter
	clears        prometheus.Counter
	clearedItems  prometheus.Counter
	revalidations prometheus.Counter

	size        prometheus.Gauge
	utilization prometheus.Gauge

	wait *prometheus.HistogramVec
}

func newCounter(prefix, name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "semqueue",
		Subsystem:   "queue",
		Name:        name,
		ConstLabels: prometheus.Labels{"component": prefix},
		Help:        help,
	})
}

func newGauge(prefix, name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "semqueue",
		Subsystem:   "queue",
		Name:        name,
		ConstLabels: prometheus.Labels{"component": prefix},
		Help:        help,
	})
}

// newQueueMetrics creates and registers queue metrics with the provided registry.
// On failure every metric registered so far is unregistered again.
func newQueueMetrics(registry *metric.MetricsRegistry, prefix string) (*queueMetrics, error) {
	m := &queueMetrics{
		registry:      registry,
		prefix:        prefix,
		enqueues:      newCounter(prefix, "enqueues_total", "Total number of completed enqueue operations"),
		dequeues:      newCounter(prefix, "dequeues_total", "Total number of completed dequeue operations"),
		rejected:      newCounter(prefix, "rejected_total", "Total number of enqueues rejected (nil element or full on non-blocking path)"),
		clears:        newCounter(prefix, "clears_total", "Total number of Clear calls"),
		clearedItems:  newCounter(prefix, "cleared_items_total", "Total number of elements discarded by Clear"),
		revalidations: newCounter(prefix, "revalidations_total", "Total number of reservations voided by Clear and re-claimed"),
		size:          newGauge(prefix, "size", "Current number of elements in the queue"),
		utilization:   newGauge(prefix, "utilization", "Queue utilization as a fraction of capacity (0.0 to 1.0)"),
		wait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "semqueue",
			Subsystem:   "queue",
			Name:        "wait_seconds",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Time spent blocked waiting for a slot (enqueue) or an element (dequeue)",
			Buckets:     []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		}, []string{"op"}),
	}

	counters := []struct {
		name string
		c    prometheus.Counter
	}{
		{"queue_enqueues", m.enqueues},
		{"queue_dequeues", m.dequeues},
		{"queue_rejected", m.rejected},
		{"queue_clears", m.clears},
		{"queue_cleared_items", m.clearedItems},
		{"queue_revalidations", m.revalidations},
	}
	for _, c := range counters {
		if err := registry.RegisterCounter(prefix, c.name, c.c); err != nil {
			m.unregister()
			return nil, err
		}
		m.names = append(m.names, c.name)
	}

	gauges := []struct {
		name string
		g    prometheus.Gauge
	}{
		{"queue_size", m.size},
		{"queue_utilization", m.utilization},
	}
	for _, g := range gauges {
		if err := registry.RegisterGauge(prefix, g.name, g.g); err != nil {
			m.unregister()
			return nil, err
		}
		m.names = append(m.names, g.name)
	}

	if err := registry.RegisterHistogramVec(prefix, "queue_wait_seconds", m.wait); err != nil {
		m.unregister()
		return nil, err
	}
	m.names = append(m.names, "queue_wait_seconds")

	return m, nil
}

func (m *queueMetrics) unregister() {
	for _, name := range m.names {
		m.registry.Unregister(m.prefix, name)
	}
	m.names = nil
}

func (m *queueMetrics) recordEnqueue(size, capacity int, waited time.Duration) {
	m.enqueues.Inc()
	m.updateSize(size, capacity)
	if waited > 0 {
		m.wait.WithLabelValues("enqueue").Observe(waited.Seconds())
	}
}

func (m *queueMetrics) recordDequeue(size, capacity int, waited time.Duration) {
	m.dequeues.Inc()
	m.updateSize(size, capacity)
	if waited > 0 {
		m.wait.WithLabelValues("dequeue").Observe(waited.Seconds())
	}
}

func (m *queueMetrics) recordReject() {
	m.rejected.Inc()
}

func (m *queueMetrics) recordClear(dropped, capacity int) {
	m.clears.Inc()
	m.clearedItems.Add(float64(dropped))
	m.updateSize(0, capacity)
}

func (m *queueMetrics) recordRevalidation() {
	m.revalidations.Inc()
}

// recordError labels by prefix, not queue name: generated names are unbounded.
func (m *queueMetrics) recordError(err error) {
	m.registry.CoreMetrics().RecordQueueError(m.prefix, errors.Classify(err).String())
}

func (m *queueMetrics) updateSize(size, capacity int) {
	m.size.Set(float64(size))
	m.utilization.Set(float64(size) / float64(capacity))
}
