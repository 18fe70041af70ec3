package blockingqueue

import (
	"context"
	"sync"
	"time"
)

// signal is a counting signal: a non-negative value that claim decrements,
// waiting while it is zero, and post increments.
//
// Every unit belongs to an epoch. reset starts a new epoch, which voids units
// claimed earlier and makes posts that carry an older epoch no-ops. The queue
// uses this so Clear can rewrite both signals while goroutines are parked on
// them or hold reservations between claim and lock.
type signal struct {
	mu     sync.Mutex
	cond   *sync.Cond
	value  int
	epoch  uint64
	closed bool
	err    error // returned to waiters after close
}

func newSignal(initial int) *signal {
	s := &signal{value: initial}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// claim waits until a unit is available and takes it, returning the epoch the
// unit was taken in and whether the caller had to wait.
func (s *signal) claim(ctx context.Context) (epoch uint64, waited time.Duration, err error) {
	if ctx.Done() != nil {
		// Wake parked waiters so they notice cancellation.
		stop := context.AfterFunc(ctx, func() {
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		})
		defer stop()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var start time.Time
	for s.value == 0 && !s.closed {
		if err := ctx.Err(); err != nil {
			return 0, waitedSince(start), err
		}
		if start.IsZero() {
			start = time.Now()
		}
		s.cond.Wait()
	}

	if s.closed {
		return 0, waitedSince(start), s.err
	}

	s.value--
	return s.epoch, waitedSince(start), nil
}

// tryClaim takes a unit only if one is available right now.
// ok is false when the value is zero; err is set only after close.
func (s *signal) tryClaim() (epoch uint64, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, false, s.err
	}
	if s.value == 0 {
		return 0, false, nil
	}
	s.value--
	return s.epoch, true, nil
}

// post returns one unit claimed in epoch and wakes one waiter.
// It reports false when the unit was dropped because the epoch is over or the
// signal is closed.
func (s *signal) post(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || epoch != s.epoch {
		return false
	}
	s.value++
	s.cond.Signal()
	return true
}

// reset starts epoch with value units and wakes every waiter to re-check.
func (s *signal) reset(value int, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = value
	s.epoch = epoch
	s.cond.Broadcast()
}

// close fails all current and future claims with err.
func (s *signal) close(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	s.cond.Broadcast()
}

// load returns the current number of units.
func (s *signal) load() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func waitedSince(start time.Time) time.Duration {
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}
