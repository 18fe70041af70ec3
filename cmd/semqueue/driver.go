package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/c360/semqueue/config"
	"github.com/c360/semqueue/errors"
	"github.com/c360/semqueue/health"
	"github.com/c360/semqueue/metric"
	"github.com/c360/semqueue/pkg/blockingqueue"
	"github.com/c360/semqueue/pkg/retry"
	"github.com/c360/semqueue/pkg/worker"
)

// drainPollInterval is how often the driver checks that consumers emptied the queue.
const drainPollInterval = 5 * time.Millisecond

// Item is the unit of work moved through the queue.
type Item struct {
	ID       int
	Producer int
	Created  time.Time
}

// Report summarizes one run.
type Report struct {
	RunID      string                     `json:"run_id"`
	Mode       string                     `json:"mode"`
	Produced   int64                      `json:"produced"`
	Consumed   int64                      `json:"consumed"`
	Cleared    int64                      `json:"cleared"`
	Fallbacks  int64                      `json:"fallbacks"`
	Duplicates int                        `json:"duplicates"`
	Missing    int                        `json:"missing"`
	Duration   time.Duration              `json:"duration"`
	Queue      blockingqueue.StatsSummary `json:"queue"`
	Pool       *worker.PoolStats          `json:"pool,omitempty"`
}

// Verify checks exactly-once delivery: every produced item was consumed once
// or discarded by a clear, and nothing was consumed twice.
func (r *Report) Verify() error {
	switch {
	case r.Duplicates > 0:
		return errors.WrapFatal(
			fmt.Errorf("%w: %d items delivered more than once", errors.ErrCorrupted, r.Duplicates),
			"Driver", "Verify", "exactly-once check")
	case r.Consumed+r.Cleared != r.Produced:
		return errors.WrapFatal(
			fmt.Errorf("%w: produced %d, consumed %d, cleared %d", errors.ErrCorrupted, r.Produced, r.Consumed, r.Cleared),
			"Driver", "Verify", "conservation check")
	case r.Missing != int(r.Cleared):
		return errors.WrapFatal(
			fmt.Errorf("%w: %d items never delivered, %d cleared", errors.ErrCorrupted, r.Missing, r.Cleared),
			"Driver", "Verify", "exactly-once check")
	}
	return nil
}

// Driver runs a configured workload against one queue.
type Driver struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry // nil when metrics are disabled
	monitor  *health.Monitor
	limiter  *rate.Limiter // nil when production is unthrottled
	runID    string

	// sent[id] marks accepted items, deliveries[id] counts consumptions
	sent       []atomic.Bool
	deliveries []atomic.Int32
	produced   atomic.Int64
	consumed   atomic.Int64
	fallbacks  atomic.Int64
}

// NewDriver creates a driver. registry may be nil.
func NewDriver(cfg *config.Config, logger *slog.Logger, registry *metric.MetricsRegistry, monitor *health.Monitor) *Driver {
	runID := uuid.NewString()

	var limiter *rate.Limiter
	if cfg.Workload.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Workload.Rate), max(1, cfg.Workload.Producers))
	}

	return &Driver{
		cfg:        cfg,
		logger:     logger.With("run_id", runID),
		registry:   registry,
		monitor:    monitor,
		limiter:    limiter,
		runID:      runID,
		sent:       make([]atomic.Bool, cfg.TotalItems()),
		deliveries: make([]atomic.Int32, cfg.TotalItems()),
	}
}

// Run executes the workload. Cancelling ctx stops producers early; whatever
// was produced is still drained and accounted for.
func (d *Driver) Run(ctx context.Context, shutdownTimeout time.Duration) (*Report, error) {
	start := time.Now()
	d.logger.Info("Run starting",
		"queue", d.cfg.Queue.Name,
		"capacity", d.cfg.Queue.Capacity,
		"producers", d.cfg.Workload.Producers,
		"consumers", d.cfg.Workload.Consumers,
		"workers", d.cfg.Workload.Workers,
		"items", d.cfg.TotalItems())

	var report *Report
	var err error
	if d.cfg.Workload.Workers > 0 {
		report, err = d.runPool(ctx, shutdownTimeout)
	} else {
		report, err = d.runDirect(ctx)
	}
	if err != nil {
		return nil, err
	}

	report.RunID = d.runID
	report.Produced = d.produced.Load()
	report.Consumed = d.consumed.Load()
	report.Fallbacks = d.fallbacks.Load()
	report.Duration = time.Since(start)
	for i := range d.deliveries {
		switch n := d.deliveries[i].Load(); {
		case n > 1:
			report.Duplicates++
		case n == 0 && d.sent[i].Load():
			report.Missing++
		}
	}
	return report, nil
}

// runDirect connects plain producer and consumer goroutines to a queue.
func (d *Driver) runDirect(ctx context.Context) (*Report, error) {
	q, err := blockingqueue.New[*Item](d.cfg.Queue.Capacity, d.queueOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "Driver", "runDirect", "queue creation")
	}
	defer q.Close()

	d.monitor.Track(q.Name(), q)
	defer d.monitor.Remove(q.Name())

	consumerCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()

	var consumers sync.WaitGroup
	consumersDone := make(chan struct{})
	for i := 0; i < d.cfg.Workload.Consumers; i++ {
		consumers.Add(1)
		go func(id int) {
			defer consumers.Done()
			for {
				item, err := q.DequeueContext(consumerCtx)
				if err != nil {
					if consumerCtx.Err() == nil {
						d.logger.Error("Consumer stopped", "consumer", id, "error", err)
					}
					return
				}
				d.consume(item)
			}
		}(i)
	}

	go func() {
		consumers.Wait()
		close(consumersDone)
	}()

	stopClearing := d.startClearer(q)

	enqueue := q.EnqueueContext
	if d.cfg.Workload.Backoff {
		enqueue = d.withBackoff(q.TryEnqueue, q.EnqueueContext)
	}
	produceErr := d.produce(ctx, enqueue)
	stopClearing()

	// Let consumers take what is left, then release them.
	ticker := time.NewTicker(drainPollInterval)
drain:
	for !q.IsEmpty() {
		select {
		case <-ticker.C:
		case <-consumersDone:
			break drain
		}
	}
	ticker.Stop()
	stopConsumers()
	<-consumersDone

	if status := q.Health(); status.IsUnhealthy() {
		return nil, errors.WrapFatal(fmt.Errorf("%w: %s", errors.ErrCorrupted, status.Message),
			"Driver", "runDirect", "queue health check")
	}
	if produceErr != nil {
		return nil, errors.Wrap(produceErr, "Driver", "runDirect", "produce")
	}

	stats := q.Stats().Summary()
	return &Report{
		Mode:    "direct",
		Cleared: stats.ClearedItems,
		Queue:   stats,
	}, nil
}

// runPool feeds a worker pool instead of plain consumers.
func (d *Driver) runPool(ctx context.Context, shutdownTimeout time.Duration) (*Report, error) {
	if d.cfg.Workload.ClearInterval > 0 {
		d.logger.Warn("clear_interval is ignored in worker pool mode")
	}

	opts := []worker.Option[*Item]{
		worker.WithName[*Item](d.cfg.Queue.Name),
		worker.WithLogger[*Item](d.logger),
	}
	if d.registry != nil {
		opts = append(opts, worker.WithMetricsRegistry[*Item](d.registry, metricPrefix(d.cfg.Queue.Name)))
	}

	pool, err := worker.NewPool(d.cfg.Workload.Workers, d.cfg.Queue.Capacity,
		func(_ context.Context, item *Item) error {
			d.consume(item)
			return nil
		}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "Driver", "runPool", "pool creation")
	}

	d.monitor.Track(d.cfg.Queue.Name, pool)
	defer d.monitor.Remove(d.cfg.Queue.Name)

	// Workers are not bound to ctx: accepted work is always drained.
	if err := pool.Start(context.Background()); err != nil {
		return nil, errors.Wrap(err, "Driver", "runPool", "pool start")
	}

	submit := pool.SubmitContext
	if d.cfg.Workload.Backoff {
		submit = d.withBackoff(pool.TrySubmit, pool.SubmitContext)
	}
	produceErr := d.produce(ctx, submit)

	if err := pool.Stop(shutdownTimeout); err != nil {
		return nil, errors.Wrap(err, "Driver", "runPool", "pool stop")
	}
	if produceErr != nil {
		return nil, errors.Wrap(produceErr, "Driver", "runPool", "produce")
	}

	stats := pool.Stats()
	return &Report{
		Mode:  "pool",
		Queue: pool.QueueStats(),
		Pool:  &stats,
	}, nil
}

// produce runs the producers to completion or until ctx is done. The first
// producer failure stops the others and is returned.
func (d *Driver) produce(ctx context.Context, enqueue func(context.Context, *Item) error) error {
	perProducer := d.cfg.Workload.ItemsPerProducer

	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < d.cfg.Workload.Producers; p++ {
		g.Go(func() error {
			for i := 0; i < perProducer; i++ {
				if d.limiter != nil {
					// Wait fails early when the next token lands past the deadline.
					if err := d.limiter.Wait(gctx); err != nil {
						return nil
					}
				}

				item := &Item{ID: p*perProducer + i, Producer: p, Created: time.Now()}
				if err := enqueue(gctx, item); err != nil {
					if gctx.Err() != nil {
						return nil
					}
					d.logger.Error("Producer stopped", "producer", p, "error", err)
					return fmt.Errorf("producer %d: %w", p, err)
				}
				d.sent[item.ID].Store(true)
				d.produced.Add(1)
			}
			return nil
		})
	}
	return g.Wait()
}

// withBackoff retries try while the queue is full and falls back to block
// once the retries are spent.
func (d *Driver) withBackoff(try func(*Item) error, block func(context.Context, *Item) error) func(context.Context, *Item) error {
	cfg := retry.DefaultConfig()
	return func(ctx context.Context, item *Item) error {
		err := retry.Do(ctx, cfg, func() error { return try(item) })
		if err == nil {
			return nil
		}
		if errors.Is(err, errors.ErrQueueFull) && ctx.Err() == nil {
			d.fallbacks.Add(1)
			return block(ctx, item)
		}
		return err
	}
}

func (d *Driver) consume(item *Item) {
	if delay := d.cfg.Workload.ProcessDelay; delay > 0 {
		time.Sleep(delay)
	}
	d.deliveries[item.ID].Add(1)
	d.consumed.Add(1)
}

// startClearer clears q every ClearInterval until the returned func is called.
func (d *Driver) startClearer(q *blockingqueue.Queue[*Item]) (stop func()) {
	interval := d.cfg.Workload.ClearInterval
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				q.Clear()
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

func (d *Driver) queueOptions() []blockingqueue.Option[*Item] {
	opts := []blockingqueue.Option[*Item]{
		blockingqueue.WithName[*Item](d.cfg.Queue.Name),
		blockingqueue.WithLogger[*Item](d.logger),
	}
	if d.registry != nil {
		opts = append(opts, blockingqueue.WithMetrics[*Item](d.registry, metricPrefix(d.cfg.Queue.Name)))
	}
	return opts
}

// metricPrefix turns a queue name into a label-safe component name.
func metricPrefix(name string) string {
	out := []byte(name)
	for i, c := range out {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			out[i] = '_'
		}
	}
	return string(out)
}
