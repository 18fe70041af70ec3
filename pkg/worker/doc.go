// Package worker provides a generic, thread-safe worker pool for concurrent task processing.
//
// # Overview
//
// A Pool runs a fixed number of goroutines that take work items from a
// bounded blockingqueue.Queue and hand them to a processor function:
//
//	pool, err := worker.NewPool[Job](
//	    5,   // workers
//	    100, // queue holds 100 jobs
//	    func(ctx context.Context, job Job) error {
//	        return handle(ctx, job)
//	    },
//	)
//	if err != nil {
//	    return err
//	}
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(5 * time.Second)
//
// # Submitting Work
//
// Submit blocks while the queue is full, which pushes backpressure onto the
// producer. SubmitContext bounds that wait. TrySubmit never blocks: a full
// queue counts as a drop and returns an error wrapping errors.ErrQueueFull.
//
// # Shutdown
//
// Stop(timeout) is graceful:
//  1. New submissions fail with ErrPoolStopped
//  2. Submissions already blocked on a full queue complete
//  3. Workers drain the queue, then the queue is closed
//  4. Stop waits for in-flight processing
//
// If that does not finish within timeout the queue is closed anyway, the
// remaining items are discarded, the run context is cancelled and Stop returns
// an error wrapping ErrStopTimeout.
//
// # Observability
//
// Statistics are always tracked with atomic counters (Stats, QueueStats).
// WithMetricsRegistry additionally exposes:
//
//   - <prefix>_queue_depth, <prefix>_utilization
//   - <prefix>_submitted_total, <prefix>_processed_total
//   - <prefix>_failed_total, <prefix>_dropped_total
//   - <prefix>_processing_duration_seconds (histogram by status)
//
// plus the semqueue_queue_* metrics of the underlying queue. Health reports
// the pool state with the queue health as a sub-status.
//
// # Thread Safety
//
// All public methods are safe for concurrent use.
package worker
