package blockingqueue

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks queue activity. It is always collected.
type Statistics struct {
	enqueues        atomic.Int64
	dequeues        atomic.Int64
	rejects         atomic.Int64
	clears          atomic.Int64
	clearedItems    atomic.Int64
	revalidations   atomic.Int64
	blockedEnqueues atomic.Int64
	blockedDequeues atomic.Int64

	// Protected by mutex
	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// Enqueue records a completed enqueue.
func (s *Statistics) Enqueue() { s.enqueues.Add(1) }

// Dequeue records a completed dequeue.
func (s *Statistics) Dequeue() { s.dequeues.Add(1) }

// Reject records an enqueue refused for a nil element or, on the
// non-blocking path, a full queue.
func (s *Statistics) Reject() { s.rejects.Add(1) }

// Clear records a Clear call that discarded n elements.
func (s *Statistics) Clear(n int) {
	s.clears.Add(1)
	s.clearedItems.Add(int64(n))
}

// Revalidate records a reservation voided by Clear and re-claimed.
func (s *Statistics) Revalidate() { s.revalidations.Add(1) }

// BlockedEnqueue records an enqueue that had to wait for a free slot.
func (s *Statistics) BlockedEnqueue() { s.blockedEnqueues.Add(1) }

// BlockedDequeue records a dequeue that had to wait for an element.
func (s *Statistics) BlockedDequeue() { s.blockedDequeues.Add(1) }

// UpdateSize updates the current queue size.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Enqueues returns the total number of completed enqueues.
func (s *Statistics) Enqueues() int64 { return s.enqueues.Load() }

// Dequeues returns the total number of completed dequeues.
func (s *Statistics) Dequeues() int64 { return s.dequeues.Load() }

// Rejects returns the total number of rejected enqueues.
func (s *Statistics) Rejects() int64 { return s.rejects.Load() }

// Clears returns the number of Clear calls.
func (s *Statistics) Clears() int64 { return s.clears.Load() }

// ClearedItems returns the number of elements discarded by Clear.
func (s *Statistics) ClearedItems() int64 { return s.clearedItems.Load() }

// Revalidations returns the number of reservations voided by Clear.
func (s *Statistics) Revalidations() int64 { return s.revalidations.Load() }

// BlockedEnqueues returns the number of enqueues that waited.
func (s *Statistics) BlockedEnqueues() int64 { return s.blockedEnqueues.Load() }

// BlockedDequeues returns the number of dequeues that waited.
func (s *Statistics) BlockedDequeues() int64 { return s.blockedDequeues.Load() }

// CurrentSize returns the size recorded by the last mutation.
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the high-water mark of the queue size.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// Uptime returns how long the queue has existed.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// Throughput returns the average number of dequeues per second.
func (s *Statistics) Throughput() float64 {
	elapsed := s.Uptime()
	if elapsed <= 0 {
		return 0.0
	}
	return float64(s.Dequeues()) / elapsed.Seconds()
}

// Utilization returns the last recorded size as a fraction of capacity.
func (s *Statistics) Utilization(capacity int64) float64 {
	if capacity == 0 {
		return 0.0
	}
	return float64(s.CurrentSize()) / float64(capacity)
}

// StatsSummary is a point-in-time copy of Statistics.
type StatsSummary struct {
	Enqueues        int64         `json:"enqueues"`
	Dequeues        int64         `json:"dequeues"`
	Rejects         int64         `json:"rejects"`
	Clears          int64         `json:"clears"`
	ClearedItems    int64         `json:"cleared_items"`
	Revalidations   int64         `json:"revalidations"`
	BlockedEnqueues int64         `json:"blocked_enqueues"`
	BlockedDequeues int64         `json:"blocked_dequeues"`
	CurrentSize     int64         `json:"current_size"`
	MaxSize         int64         `json:"max_size"`
	Throughput      float64       `json:"throughput"`
	Uptime          time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Enqueues:        s.Enqueues(),
		Dequeues:        s.Dequeues(),
		Rejects:         s.Rejects(),
		Clears:          s.Clears(),
		ClearedItems:    s.ClearedItems(),
		Revalidations:   s.Revalidations(),
		BlockedEnqueues: s.BlockedEnqueues(),
		BlockedDequeues: s.BlockedDequeues(),
		CurrentSize:     s.CurrentSize(),
		MaxSize:         s.MaxSize(),
		Throughput:      s.Throughput(),
		Uptime:          s.Uptime(),
	}
}
