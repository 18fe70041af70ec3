package blockingqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/semqueue/errors"
	"github.com/c360/semqueue/health"
	"github.com/c360/semqueue/pkg/ringbuffer"
)

// Queue is a fixed-capacity FIFO shared by any number of producer and
// consumer goroutines. Enqueue blocks while the queue is full and Dequeue
// blocks while it is empty.
//
// Each operation claims a unit from a counting signal first (a free slot for
// producers, an element for consumers), then takes the lock to touch the ring,
// then posts to the opposite signal. The claim and the mutation are separate
// steps, so producers and consumers only serialize on the ring itself.
//
// A Queue must not be copied after first use.
type Queue[T any] struct {
	name     string
	capacity int
	logger   *slog.Logger

	mu       sync.Mutex // guards everything below up to the signals
	ring     *ringbuffer.Ring[T]
	epoch    uint64
	closed   bool
	released bool
	failure  error // set when the instance is poisoned

	fill  *signal // elements a consumer may claim
	empty *signal // free slots a producer may claim

	stats   *Statistics   // always present
	metrics *queueMetrics // optional
	opts    *queueOptions[T]
}

// New creates an empty queue holding at most capacity elements.
// Capacity is required; everything else is configured with options.
func New[T any](capacity int, options ...Option[T]) (*Queue[T], error) {
	opts := applyOptions(options...)

	ring, err := ringbuffer.New[T](capacity)
	if err != nil {
		return nil, errors.Wrap(err, "BlockingQueue", "New", "ring allocation")
	}

	name := opts.name
	if name == "" {
		name = "queue-" + uuid.NewString()[:8]
	}

	var metrics *queueMetrics
	if opts.metricsReg != nil {
		metrics, err = newQueueMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.Wrap(err, "BlockingQueue", "New", "metrics registration")
		}
		opts.metricsReg.CoreMetrics().RecordQueueOpened()
	}

	q := &Queue[T]{
		name:     name,
		capacity: capacity,
		logger:   opts.logger.With("component", "blockingqueue", "queue", name),
		ring:     ring,
		fill:     newSignal(0),
		empty:    newSignal(capacity),
		stats:    NewStatistics(),
		metrics:  metrics,
		opts:     opts,
	}

	if metrics != nil {
		metrics.updateSize(0, capacity)
	}

	return q, nil
}

// Enqueue appends item, blocking until a slot is free.
// It fails without blocking if item is nil, and fails if the queue is closed
// before or while waiting.
func (q *Queue[T]) Enqueue(item T) error {
	return q.EnqueueContext(context.Background(), item)
}

// EnqueueContext is Enqueue with cancellation. A cancelled wait leaves the
// queue unchanged.
func (q *Queue[T]) EnqueueContext(ctx context.Context, item T) error {
	if ringbuffer.IsNil(item) {
		return q.reject(errors.WrapInvalid(errors.ErrNilElement, "BlockingQueue", "Enqueue", "element validation"))
	}

	for {
		epoch, waited, err := q.empty.claim(ctx)
		if err != nil {
			return q.fail(q.waitError(err, "Enqueue", "wait for free slot"))
		}

		stale, err := q.insert(epoch, item, waited)
		if err != nil {
			return q.fail(err)
		}
		if stale {
			q.revalidated()
			continue
		}

		q.fill.post(epoch)
		if waited > 0 {
			q.stats.BlockedEnqueue()
		}
		return nil
	}
}

// TryEnqueue appends item only if a slot is free right now.
// A full queue yields a transient error wrapping errors.ErrQueueFull.
func (q *Queue[T]) TryEnqueue(item T) error {
	if ringbuffer.IsNil(item) {
		return q.reject(errors.WrapInvalid(errors.ErrNilElement, "BlockingQueue", "TryEnqueue", "element validation"))
	}

	for {
		epoch, ok, err := q.empty.tryClaim()
		if err != nil {
			return q.fail(q.waitError(err, "TryEnqueue", "claim free slot"))
		}
		if !ok {
			return q.reject(errors.WrapTransient(errors.ErrQueueFull, "BlockingQueue", "TryEnqueue", "claim free slot"))
		}

		stale, err := q.insert(epoch, item, 0)
		if err != nil {
			return q.fail(err)
		}
		if stale {
			q.revalidated()
			continue
		}

		q.fill.post(epoch)
		return nil
	}
}

// Dequeue removes and returns the oldest element, blocking until one exists.
// It fails only if the queue is closed before or while waiting.
func (q *Queue[T]) Dequeue() (T, error) {
	return q.DequeueContext(context.Background())
}

// DequeueContext is Dequeue with cancellation. A cancelled wait leaves the
// queue unchanged.
func (q *Queue[T]) DequeueContext(ctx context.Context) (T, error) {
	var zero T

	for {
		epoch, waited, err := q.fill.claim(ctx)
		if err != nil {
			return zero, q.fail(q.waitError(err, "Dequeue", "wait for element"))
		}

		item, stale, err := q.remove(epoch, waited)
		if err != nil {
			return zero, q.fail(err)
		}
		if stale {
			q.revalidated()
			continue
		}

		q.empty.post(epoch)
		if waited > 0 {
			q.stats.BlockedDequeue()
		}
		return item, nil
	}
}

// TryDequeue removes and returns the oldest element if there is one.
// An empty queue yields a transient error wrapping errors.ErrQueueEmpty. A
// closed or poisoned queue yields the same error Dequeue would return.
func (q *Queue[T]) TryDequeue() (T, error) {
	var zero T

	for {
		epoch, ok, err := q.fill.tryClaim()
		if err != nil {
			return zero, q.fail(q.waitError(err, "TryDequeue", "claim element"))
		}
		if !ok {
			return zero, errors.WrapTransient(errors.ErrQueueEmpty, "BlockingQueue", "TryDequeue", "claim element")
		}

		item, stale, err := q.remove(epoch, 0)
		if err != nil {
			return zero, q.fail(err)
		}
		if stale {
			q.revalidated()
			continue
		}

		q.empty.post(epoch)
		return item, nil
	}
}

// insert is the locked half of an enqueue. stale reports that Clear voided
// the reservation taken in epoch and the caller must claim again.
func (q *Queue[T]) insert(epoch uint64, item T, waited time.Duration) (stale bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, q.closedErrorLocked("Enqueue")
	}
	if epoch != q.epoch {
		return true, nil
	}

	if err := q.ring.Enqueue(item); err != nil {
		// A reserved slot must exist.
		return false, q.poisonLocked(errors.WrapFatal(
			fmt.Errorf("%w: slot reserved but ring rejected element: %v", errors.ErrCorrupted, err),
			"BlockingQueue", "Enqueue", "ring enqueue"))
	}

	size := q.ring.Size()
	q.stats.Enqueue()
	q.stats.UpdateSize(int64(size))
	if q.metrics != nil {
		q.metrics.recordEnqueue(size, q.capacity, waited)
	}
	return false, nil
}

// remove is the locked half of a dequeue.
func (q *Queue[T]) remove(epoch uint64, waited time.Duration) (item T, stale bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return item, false, q.closedErrorLocked("Dequeue")
	}
	if epoch != q.epoch {
		return item, true, nil
	}

	item, ok := q.ring.Dequeue()
	if !ok {
		// A claimed element must exist.
		return item, false, q.poisonLocked(errors.WrapFatal(
			fmt.Errorf("%w: element claimed but ring is empty", errors.ErrCorrupted),
			"BlockingQueue", "Dequeue", "ring dequeue"))
	}

	size := q.ring.Size()
	q.stats.Dequeue()
	q.stats.UpdateSize(int64(size))
	if q.metrics != nil {
		q.metrics.recordDequeue(size, q.capacity, waited)
	}
	return item, false, nil
}

// Size returns the number of elements at the moment of the call.
// Under concurrent use the value is advisory.
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ring.Size()
}

// IsEmpty reports whether the queue held no elements at the moment of the call.
func (q *Queue[T]) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ring.IsEmpty()
}

// IsFull reports whether every slot was occupied at the moment of the call.
func (q *Queue[T]) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ring.IsFull()
}

// Peek returns the oldest element without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ring.Peek()
}

// Capacity returns the fixed capacity.
func (q *Queue[T]) Capacity() int {
	return q.capacity // immutable, no lock needed
}

// Name returns the queue name used in logs, metrics errors and health.
func (q *Queue[T]) Name() string {
	return q.name
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() *Statistics {
	return q.stats
}

// Clear discards every element and restores the full free capacity.
//
// It is safe to call while goroutines are blocked in Enqueue or Dequeue, or
// sit between their claim and their mutation. Clear starts a new signal epoch
// under the queue lock: reservations from the old epoch are voided and their
// holders claim again, and late posts from the old epoch are ignored. Blocked
// producers wake and compete for the restored slots; blocked consumers keep
// waiting.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	dropped := q.ring.Size()
	q.ring.Clear()

	q.epoch++
	q.fill.reset(0, q.epoch)
	q.empty.reset(q.capacity, q.epoch)

	q.stats.Clear(dropped)
	q.stats.UpdateSize(0)
	if q.metrics != nil {
		q.metrics.recordClear(dropped, q.capacity)
	}

	q.logger.Debug("Queue cleared", "dropped", dropped)
}

// Close releases the queue. Goroutines blocked in Enqueue or Dequeue return
// an error wrapping errors.ErrQueueClosed, and every later operation fails the
// same way. Remaining elements are discarded. Close is idempotent; it returns
// the fatal error if the queue was poisoned.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	if q.released {
		q.mu.Unlock()
		return q.failure
	}

	q.closed = true
	q.released = true
	dropped := q.ring.Size()
	q.ring.Clear()
	q.stats.UpdateSize(0)

	// No-ops if poisonLocked already closed them with the fatal error.
	q.fill.close(errors.ErrQueueClosed)
	q.empty.close(errors.ErrQueueClosed)
	failure := q.failure
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.unregister()
		q.opts.metricsReg.CoreMetrics().RecordQueueClosed()
	}

	q.logger.Debug("Queue closed", "dropped", dropped)
	return failure
}

// Health reports healthy while usable, degraded while full (producers will
// block), and unhealthy once closed or poisoned.
func (q *Queue[T]) Health() health.Status {
	q.mu.Lock()
	size := q.ring.Size()
	closed := q.closed
	failure := q.failure
	q.mu.Unlock()

	var status health.Status
	switch {
	case failure != nil:
		status = health.NewUnhealthy(q.name, failure.Error())
	case closed:
		status = health.NewUnhealthy(q.name, "queue closed")
	case size == q.capacity:
		status = health.NewDegraded(q.name, "queue full, producers are blocking")
	default:
		status = health.NewHealthy(q.name, fmt.Sprintf("%d/%d slots occupied", size, q.capacity))
	}

	return status.WithMetrics(&health.Metrics{
		Uptime:      q.stats.Uptime(),
		Size:        size,
		Capacity:    q.capacity,
		Utilization: float64(size) / float64(q.capacity),
		ErrorCount:  q.stats.Rejects(),
	})
}

// poisonLocked marks the queue unusable after an accounting violation and
// releases every waiter with err. Must hold q.mu.
func (q *Queue[T]) poisonLocked(err error) error {
	if q.failure == nil {
		q.failure = err
		q.closed = true
		q.fill.close(err)
		q.empty.close(err)
		q.logger.Error("Queue poisoned, refusing further use", "error", err)
	}
	return q.failure
}

func (q *Queue[T]) closedErrorLocked(op string) error {
	if q.failure != nil {
		return q.failure
	}
	return errors.WrapInvalid(errors.ErrQueueClosed, "BlockingQueue", op, "queue state check")
}

// waitError classifies an error returned by a signal claim.
func (q *Queue[T]) waitError(err error, op, action string) error {
	switch {
	case errors.IsFatal(err):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errors.WrapTransient(err, "BlockingQueue", op, action)
	default:
		return errors.WrapInvalid(err, "BlockingQueue", op, action)
	}
}

func (q *Queue[T]) reject(err error) error {
	q.stats.Reject()
	if q.metrics != nil {
		q.metrics.recordReject()
	}
	return q.fail(err)
}

func (q *Queue[T]) fail(err error) error {
	if q.metrics != nil {
		q.metrics.recordError(err)
	}
	return err
}

func (q *Queue[T]) revalidated() {
	q.stats.Revalidate()
	if q.metrics != nil {
		q.metrics.recordRevalidation()
	}
}
