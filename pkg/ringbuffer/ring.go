// Package ringbuffer provides a fixed-capacity, array-backed FIFO.
//
// Ring is not safe for concurrent use. It is the storage layer beneath
// blockingqueue.Queue, which serializes every call behind its own lock.
package ringbuffer

import (
	"reflect"

	"github.com/c360/semqueue/errors"
)

// Ring is a circular array of element references.
//
// The occupied region is the count slots starting at head, moving forward
// with wrap-around. tail is the slot written by the most recent Enqueue.
type Ring[T any] struct {
	slots    []T
	capacity int
	head     int
	tail     int
	count    int
}

// New creates an empty ring holding at most capacity elements.
func New[T any](capacity int) (*Ring[T], error) {
	if capacity <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidCapacity, "Ring", "New", "capacity validation")
	}

	return &Ring[T]{
		slots:    make([]T, capacity),
		capacity: capacity,
		tail:     capacity - 1,
	}, nil
}

// Enqueue stores item after the current tail.
// It fails without changing state if item is nil or the ring is full.
func (r *Ring[T]) Enqueue(item T) error {
	if IsNil(item) {
		return errors.WrapInvalid(errors.ErrNilElement, "Ring", "Enqueue", "element validation")
	}
	if r.count == r.capacity {
		return errors.WrapTransient(errors.ErrQueueFull, "Ring", "Enqueue", "capacity check")
	}

	r.tail = (r.tail + 1) % r.capacity
	r.slots[r.tail] = item
	r.count++
	return nil
}

// Dequeue removes and returns the element at head.
// It returns the zero value and false when the ring is empty.
func (r *Ring[T]) Dequeue() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}

	item := r.slots[r.head]
	r.slots[r.head] = zero // drop the reference so the ring does not pin it
	r.head = (r.head + 1) % r.capacity
	r.count--
	return item, true
}

// Peek returns the element at head without removing it.
func (r *Ring[T]) Peek() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.slots[r.head], true
}

// Size returns the number of occupied slots.
func (r *Ring[T]) Size() int {
	return r.count
}

// Capacity returns the fixed number of slots.
func (r *Ring[T]) Capacity() int {
	return r.capacity
}

// IsEmpty reports whether no slot is occupied.
func (r *Ring[T]) IsEmpty() bool {
	return r.count == 0
}

// IsFull reports whether every slot is occupied.
func (r *Ring[T]) IsFull() bool {
	return r.count == r.capacity
}

// Clear discards all stored references and resets the indices.
// The referenced values themselves are left untouched; the caller owns them.
func (r *Ring[T]) Clear() {
	clear(r.slots)
	r.head = 0
	r.tail = r.capacity - 1
	r.count = 0
}

// IsNil reports whether v is a nil pointer, map, slice, channel, function or
// interface. Values of non-nillable kinds, including zero values, are never nil.
func IsNil[T any](v T) bool {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map,
		reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}
