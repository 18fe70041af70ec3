// Package semqueue is a bounded, blocking, thread-safe FIFO queue for Go
// programs that hand work between goroutines.
//
// # Layout
//
//   - pkg/ringbuffer: fixed-capacity circular storage, not synchronized
//   - pkg/blockingqueue: the generic blocking queue built on the ring
//   - pkg/worker: a worker pool fed by a blocking queue
//   - pkg/retry: backoff for transient failures such as a full queue
//   - errors: classified errors (transient, invalid, fatal) and sentinels
//   - metric: Prometheus registry and the /metrics and /health server
//   - health: health status values and a monitor that aggregates them
//   - config: YAML configuration for the semqueue driver
//   - cmd/semqueue: a load driver that runs producers and consumers against
//     a queue and verifies every item was delivered exactly once
//
// # Quick Start
//
//	q, err := blockingqueue.New[*Job](64)
//	if err != nil {
//	    return err
//	}
//	defer q.Close()
//
//	go func() {
//	    for {
//	        job, err := q.DequeueContext(ctx)
//	        if err != nil {
//	            return
//	        }
//	        job.Run()
//	    }
//	}()
//
//	if err := q.Enqueue(job); err != nil {
//	    return err
//	}
//
// Enqueue blocks while the queue is full and Dequeue blocks while it is
// empty. Clear discards everything queued without waking blocked consumers.
package semqueue
