package metric

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semqueue/errors"
)

func gatheredNames(t *testing.T, registry *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.Same(t, registry.Metrics, registry.CoreMetrics())
}

func TestMetricsRegistry_RegisterKinds(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "A test counter"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "A test gauge"})
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_histogram", Help: "A test histogram"})
	counterVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "test_counter_vec", Help: "A test counter vec"}, []string{"op"})
	histogramVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "test_histogram_vec", Help: "A test histogram vec"}, []string{"op"})

	require.NoError(t, registry.RegisterCounter("test-queue", "test_counter", counter))
	require.NoError(t, registry.RegisterGauge("test-queue", "test_gauge", gauge))
	require.NoError(t, registry.RegisterHistogram("test-queue", "test_histogram", histogram))
	require.NoError(t, registry.RegisterCounterVec("test-queue", "test_counter_vec", counterVec))
	require.NoError(t, registry.RegisterHistogramVec("test-queue", "test_histogram_vec", histogramVec))

	counter.Inc()
	gauge.Set(42)
	histogram.Observe(0.5)
	counterVec.WithLabelValues("enqueue").Inc()
	histogramVec.WithLabelValues("dequeue").Observe(0.1)

	names := gatheredNames(t, registry)
	for _, name := range []string{"test_counter", "test_gauge", "test_histogram", "test_counter_vec", "test_histogram_vec"} {
		assert.True(t, names[name], "%s should be registered in Prometheus registry", name)
	}
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	counter1 := prometheus.NewCounter(prometheus.CounterOpts{Name: "duplicate_counter", Help: "First counter"})
	counter2 := prometheus.NewCounter(prometheus.CounterOpts{Name: "duplicate_counter", Help: "First counter"})

	require.NoError(t, registry.RegisterCounter("queue1", "duplicate_counter", counter1))

	// Same key is caught by our own tracking.
	err := registry.RegisterCounter("queue1", "duplicate_counter", counter2)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Contains(t, err.Error(), "duplicate metric registration")

	// Different key, same fully-qualified name is caught by Prometheus.
	err = registry.RegisterCounter("queue2", "duplicate_counter", counter2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")
}

func TestMetricsRegistry_UnregisterMetric(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unregister_counter",
		Help: "A counter to unregister",
	})

	require.NoError(t, registry.RegisterCounter("test-queue", "unregister_counter", counter))
	assert.True(t, gatheredNames(t, registry)["unregister_counter"])

	assert.True(t, registry.Unregister("test-queue", "unregister_counter"))
	assert.False(t, gatheredNames(t, registry)["unregister_counter"])

	assert.False(t, registry.Unregister("test-queue", "unregister_counter"), "second unregister is a no-op")

	// The name is free again.
	require.NoError(t, registry.RegisterCounter("test-queue", "unregister_counter", counter))
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	numGoroutines := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", id),
				Help: "A concurrent counter",
			})

			err := registry.RegisterCounter("concurrent-queue",
				fmt.Sprintf("concurrent_counter_%d", id), counter)
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	counterCount := 0
	for name := range gatheredNames(t, registry) {
		if strings.HasPrefix(name, "concurrent_counter_") {
			counterCount++
		}
	}
	assert.Equal(t, numGoroutines, counterCount, "All concurrent counters should be registered")
}

func TestCoreMetrics_RecordMethods(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	core.RecordQueueOpened()
	core.RecordQueueOpened()
	core.RecordQueueClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(core.QueuesActive))

	core.RecordQueueError("orders", "invalid")
	core.RecordQueueError("orders", "invalid")
	assert.Equal(t, 2.0, testutil.ToFloat64(core.QueueErrors.WithLabelValues("orders", "invalid")))

	core.RecordPoolStarted()
	core.RecordPoolStopped()
	assert.Equal(t, 0.0, testutil.ToFloat64(core.PoolsActive))

	names := gatheredNames(t, registry)
	assert.True(t, names["semqueue_queue_active"])
	assert.True(t, names["semqueue_queue_errors_total"])
	assert.True(t, names["go_goroutines"], "runtime collectors should be registered")
}
