package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/semqueue/errors"
	"github.com/c360/semqueue/health"
	"github.com/c360/semqueue/metric"
	"github.com/c360/semqueue/pkg/blockingqueue"
)

// drainPollInterval is how often Stop checks whether workers emptied the queue.
const drainPollInterval = 5 * time.Millisecond

// Pool represents a generic worker pool that can process any work type T
type Pool[T any] struct {
	// Configuration
	name      string
	workers   int
	queueSize int
	processor func(context.Context, T) error
	logger    *slog.Logger

	// Runtime state
	queue   *blockingqueue.Queue[T]
	metrics *Metrics
	wg      sync.WaitGroup // workers
	updater sync.WaitGroup // metrics updater
	pending sync.WaitGroup // submissions in flight
	runCtx  context.Context
	cancel  context.CancelFunc

	// Lifecycle management
	lifecycleMu sync.Mutex
	started     bool
	stopping    bool
	stopped     bool

	// Statistics (atomic)
	submitted int64
	processed int64
	failed    int64
	dropped   int64

	// Metrics configuration
	metricsRegistry *metric.MetricsRegistry
	metricsPrefix   string
	metricNames     []string // registered under metricsOwner, removed on Stop
}

const metricsOwner = "worker_pool"

// Metrics holds Prometheus metrics for worker pool monitoring
type Metrics struct {
	queueDepth     prometheus.Gauge
	utilization    prometheus.Gauge
	submitted      prometheus.Counter
	processed      prometheus.Counter
	failed         prometheus.Counter
	dropped        prometheus.Counter
	processingTime *prometheus.HistogramVec
}

// Option represents a configuration option for the worker pool
type Option[T any] func(*Pool[T])

// WithMetricsRegistry configures the pool to register metrics with the registry.
// The pool's queue registers its own metrics under the same prefix.
func WithMetricsRegistry[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(p *Pool[T]) {
		p.metricsRegistry = registry
		p.metricsPrefix = prefix
	}
}

// WithName sets the pool name used in logs and health reports
func WithName[T any](name string) Option[T] {
	return func(p *Pool[T]) {
		p.name = name
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(p *Pool[T]) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPool creates a worker pool whose work queue holds queueSize items.
// Non-positive workers and queueSize fall back to 10 and 1000.
func NewPool[T any](workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T]) (*Pool[T], error) {
	if workers <= 0 {
		workers = 10 // Default worker count
	}
	if queueSize <= 0 {
		queueSize = 1000 // Default queue size
	}
	if processor == nil {
		return nil, errors.WrapInvalid(ErrNilProcessor, "WorkerPool", "NewPool", "processor validation")
	}

	pool := &Pool[T]{
		name:      "worker-pool",
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		opt(pool)
	}
	pool.logger = pool.logger.With("component", "worker_pool", "pool", pool.name)

	queueOpts := []blockingqueue.Option[T]{
		blockingqueue.WithName[T](pool.name + "-queue"),
		blockingqueue.WithLogger[T](pool.logger),
	}
	if pool.metricsRegistry != nil && pool.metricsPrefix != "" {
		queueOpts = append(queueOpts, blockingqueue.WithMetrics[T](pool.metricsRegistry, pool.metricsPrefix))
	}

	queue, err := blockingqueue.New[T](queueSize, queueOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "WorkerPool", "NewPool", "work queue creation")
	}
	pool.queue = queue

	// Initialize metrics if registry provided
	if pool.metricsRegistry != nil && pool.metricsPrefix != "" {
		if err := pool.initializeMetrics(); err != nil {
			_ = queue.Close()
			return nil, errors.Wrap(err, "WorkerPool", "NewPool", "metrics registration")
		}
	}

	return pool, nil
}

// initializeMetrics creates and registers metrics with the registry
func (p *Pool[T]) initializeMetrics() error {
	prefix := p.metricsPrefix

	// Create metrics
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: prefix + "_queue_depth",
		Help: "Current worker pool queue depth",
	})
	utilization := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: prefix + "_utilization",
		Help: "Worker pool utilization (0-1)",
	})
	submitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_submitted_total",
		Help: "Total work items submitted",
	})
	processed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_processed_total",
		Help: "Total work items processed",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_failed_total",
		Help: "Total work items that failed processing",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_dropped_total",
		Help: "Total work items dropped by TrySubmit due to full queue",
	})
	processingTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prefix + "_processing_duration_seconds",
		Help:    "Time spent processing work items",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"status"})

	// Register with the registry
	collectors := []struct {
		name      string
		collector prometheus.Collector
	}{
		{prefix + "_queue_depth", queueDepth},
		{prefix + "_utilization", utilization},
		{prefix + "_submitted_total", submitted},
		{prefix + "_processed_total", processed},
		{prefix + "_failed_total", failed},
		{prefix + "_dropped_total", dropped},
		{prefix + "_processing_duration_seconds", processingTime},
	}

	var registered []string
	for _, m := range collectors {
		var err error
		switch c := m.collector.(type) {
		case prometheus.Gauge: // checked first, a Gauge also satisfies Counter
			err = p.metricsRegistry.RegisterGauge(metricsOwner, m.name, c)
		case prometheus.Counter:
			err = p.metricsRegistry.RegisterCounter(metricsOwner, m.name, c)
		case *prometheus.HistogramVec:
			err = p.metricsRegistry.RegisterHistogramVec(metricsOwner, m.name, c)
		}
		if err != nil {
			for _, name := range registered {
				p.metricsRegistry.Unregister(metricsOwner, name)
			}
			return err
		}
		registered = append(registered, m.name)
	}

	// Store metrics for use
	p.metricNames = registered
	p.metrics = &Metrics{
		queueDepth:     queueDepth,
		utilization:    utilization,
		submitted:      submitted,
		processed:      processed,
		failed:         failed,
		dropped:        dropped,
		processingTime: processingTime,
	}
	return nil
}

// acquire registers a submission so Stop waits for it.
func (p *Pool[T]) acquire(method string) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started {
		return errors.WrapInvalid(ErrPoolNotStarted, "WorkerPool", method, "lifecycle check")
	}
	if p.stopping {
		return errors.WrapInvalid(ErrPoolStopped, "WorkerPool", method, "lifecycle check")
	}
	p.pending.Add(1)
	return nil
}

// Submit submits work to the pool, blocking while the queue is full.
func (p *Pool[T]) Submit(work T) error {
	return p.SubmitContext(context.Background(), work)
}

// SubmitContext submits work, blocking while the queue is full or until ctx is done.
func (p *Pool[T]) SubmitContext(ctx context.Context, work T) error {
	if err := p.acquire("Submit"); err != nil {
		return err
	}
	defer p.pending.Done()

	if err := p.queue.EnqueueContext(ctx, work); err != nil {
		return errors.Wrap(err, "WorkerPool", "Submit", "enqueue work")
	}
	p.recordSubmitted()
	return nil
}

// TrySubmit submits work only if the queue has room. A full queue counts as a
// drop and returns an error wrapping errors.ErrQueueFull.
func (p *Pool[T]) TrySubmit(work T) error {
	if err := p.acquire("TrySubmit"); err != nil {
		return err
	}
	defer p.pending.Done()

	if err := p.queue.TryEnqueue(work); err != nil {
		if errors.Is(err, errors.ErrQueueFull) {
			atomic.AddInt64(&p.dropped, 1)
			if p.metrics != nil {
				p.metrics.dropped.Inc()
			}
		}
		return errors.Wrap(err, "WorkerPool", "TrySubmit", "enqueue work")
	}
	p.recordSubmitted()
	return nil
}

func (p *Pool[T]) recordSubmitted() {
	atomic.AddInt64(&p.submitted, 1)
	if p.metrics != nil {
		p.metrics.submitted.Inc()
		p.metrics.queueDepth.Set(float64(p.queue.Size()))
	}
}

// Start starts the worker pool
func (p *Pool[T]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return errors.WrapInvalid(ErrPoolAlreadyStarted, "WorkerPool", "Start", "lifecycle check")
	}

	p.runCtx, p.cancel = context.WithCancel(ctx)

	// Start workers with context passed through
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(p.runCtx, i)
	}

	// Start metrics updater if metrics enabled
	if p.metrics != nil {
		p.updater.Add(1)
		go p.metricsUpdater(p.runCtx)
	}

	if p.metricsRegistry != nil {
		p.metricsRegistry.CoreMetrics().RecordPoolStarted()
	}

	p.started = true
	p.logger.Debug("Worker pool started", "workers", p.workers, "queue_size", p.queueSize)
	return nil
}

// Stop refuses new submissions, waits for in-flight submissions, lets workers
// drain the queue, then closes it and waits for workers to finish the items
// they hold. Processing contexts stay live until then. If that takes longer
// than timeout the contexts are cancelled, remaining work is discarded and an
// error wrapping ErrStopTimeout is returned.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	if p.stopping {
		p.lifecycleMu.Unlock()
		return nil
	}
	p.stopping = true
	if !p.started {
		p.lifecycleMu.Unlock()
		p.finish()
		return p.queue.Close()
	}
	p.lifecycleMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.pending.Wait()
		p.drain()
		// Workers exit on ErrQueueClosed once their current item is done.
		_ = p.queue.Close()
		p.wg.Wait()
		p.cancel()
		p.updater.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		// Clean exit
		p.finish()
		return nil
	case <-timer.C:
		// Timeout - release blocked submitters and idle workers
		_ = p.queue.Close()
		p.cancel()
		p.finish()
		p.logger.Warn("Worker pool stop timed out, pending work discarded", "timeout", timeout)
		return errors.WrapTransient(
			fmt.Errorf("%w after %s", ErrStopTimeout, timeout), "WorkerPool", "Stop", "wait for workers")
	}
}

// drain waits until workers have taken every queued item or the run context ends.
func (p *Pool[T]) drain() {
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for !p.queue.IsEmpty() {
		select {
		case <-p.runCtx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Pool[T]) finish() {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.stopped {
		return
	}
	p.stopped = true
	if p.metricsRegistry != nil {
		for _, name := range p.metricNames {
			p.metricsRegistry.Unregister(metricsOwner, name)
		}
		if p.started {
			p.metricsRegistry.CoreMetrics().RecordPoolStopped()
		}
	}
	p.logger.Debug("Worker pool stopped", "processed", atomic.LoadInt64(&p.processed))
}

// Stats returns current pool statistics
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: p.queue.Size(),
		Submitted:  atomic.LoadInt64(&p.submitted),
		Processed:  atomic.LoadInt64(&p.processed),
		Failed:     atomic.LoadInt64(&p.failed),
		Dropped:    atomic.LoadInt64(&p.dropped),
	}
}

// QueueStats returns the statistics of the pool's work queue
func (p *Pool[T]) QueueStats() blockingqueue.StatsSummary {
	return p.queue.Stats().Summary()
}

// Health reports the pool lifecycle state with the work queue as a sub-status
func (p *Pool[T]) Health() health.Status {
	p.lifecycleMu.Lock()
	started, stopping := p.started, p.stopping
	p.lifecycleMu.Unlock()

	queueStatus := p.queue.Health()

	var status health.Status
	switch {
	case stopping:
		status = health.NewUnhealthy(p.name, "worker pool stopped")
	case !started:
		status = health.NewDegraded(p.name, "worker pool not started")
	case queueStatus.IsDegraded():
		status = health.NewDegraded(p.name, "work queue full, workers are falling behind")
	default:
		status = health.NewHealthy(p.name, fmt.Sprintf("%d workers running", p.workers))
	}
	return status.WithSubStatus(queueStatus)
}

// PoolStats represents worker pool statistics
type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
}

// worker processes work items from the queue until it is closed or ctx ends
func (p *Pool[T]) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		work, err := p.queue.DequeueContext(ctx)
		if err != nil {
			if errors.IsFatal(err) {
				p.logger.Error("Worker exiting on queue failure", "worker", id, "error", err)
			}
			return
		}

		// Process work item with context
		start := time.Now()
		err = p.processor(ctx, work)
		duration := time.Since(start)

		// Update statistics
		atomic.AddInt64(&p.processed, 1)
		if err != nil {
			atomic.AddInt64(&p.failed, 1)
		}

		// Update metrics
		if p.metrics != nil {
			p.metrics.processed.Inc()
			status := "success"
			if err != nil {
				p.metrics.failed.Inc()
				status = "error"
			}
			p.metrics.processingTime.WithLabelValues(status).Observe(duration.Seconds())
		}
	}
}

// metricsUpdater periodically updates utilization and queue depth metrics
func (p *Pool[T]) metricsUpdater(ctx context.Context) {
	defer p.updater.Done()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.metrics != nil {
				// Update queue depth
				queueDepth := float64(p.queue.Size())
				p.metrics.queueDepth.Set(queueDepth)

				// Calculate utilization (queue depth / queue size)
				utilization := queueDepth / float64(p.queueSize)
				p.metrics.utilization.Set(utilization)
			}
		}
	}
}
