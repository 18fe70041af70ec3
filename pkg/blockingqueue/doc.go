// Package blockingqueue provides a bounded, generic FIFO queue for concurrent
// producers and consumers, with always-on statistics and optional Prometheus
// metrics.
//
// # Quick Start
//
//	q, err := blockingqueue.New[*Job](128,
//		blockingqueue.WithName[*Job]("jobs"),
//		blockingqueue.WithMetrics[*Job](registry, "jobs"),
//	)
//	if err != nil {
//		return err
//	}
//	defer q.Close()
//
//	// Producer: blocks while all 128 slots are occupied.
//	err = q.Enqueue(job)
//
//	// Consumer: blocks while the queue is empty.
//	job, err := q.Dequeue()
//
// # Blocking Semantics
//
// Enqueue waits for a free slot and Dequeue waits for an element. Both have
// Context variants that return when the context is done, leaving the queue
// unchanged, and Try variants that never wait:
//
//   - TryEnqueue returns an error wrapping errors.ErrQueueFull when full
//   - TryDequeue returns an error wrapping errors.ErrQueueEmpty when empty
//
// Nil elements (nil pointers, maps, slices, channels, functions and
// interfaces) are rejected before any capacity is claimed, so a rejected
// Enqueue never blocks.
//
// Elements are stored by value. For pointer types the queue holds the same
// reference the producer passed; it never copies or frees what they point to.
//
// # Clear and Close
//
// Clear discards every element and may be called at any time, including while
// goroutines are blocked. It starts a new signal epoch: reservations taken
// before the clear are voided and their holders claim again, so no operation
// completes against a slot or element that Clear removed.
//
// Close discards every element, wakes all blocked goroutines with an error
// wrapping errors.ErrQueueClosed and makes every later call fail the same way.
//
// # Ordering
//
// Elements leave in the order their insertions completed. Waiting goroutines
// are not served in arrival order.
//
// # Errors
//
// Errors follow the classification in the errors package:
//
//   - Invalid: nil element, closed queue, bad capacity
//   - Transient: full queue on TryEnqueue, empty queue on TryDequeue, cancelled context
//   - Fatal: internal accounting violation; the queue is poisoned and closed
//
// # Observability
//
// Statistics are tracked with atomic counters and are always available via
// Stats. WithMetrics exports the same counters plus size, utilization and
// wait-time histograms under the semqueue_queue namespace. Health reports
// healthy, degraded while full, and unhealthy once closed.
package blockingqueue
