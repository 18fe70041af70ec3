package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semqueue/errors"
)

func TestNew(t *testing.T) {
	for _, capacity := range []int{1, 2, 7, 1024} {
		r, err := New[int](capacity)
		require.NoError(t, err)
		assert.Equal(t, capacity, r.Capacity())
		assert.Equal(t, 0, r.Size())
		assert.True(t, r.IsEmpty())
		assert.False(t, r.IsFull())
	}
}

func TestNew_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, -100} {
		r, err := New[int](capacity)
		assert.Nil(t, r)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidCapacity))
		assert.True(t, errors.IsInvalid(err))
	}
}

func TestRing_FIFO(t *testing.T) {
	r, err := New[string](3)
	require.NoError(t, err)

	require.NoError(t, r.Enqueue("a"))
	require.NoError(t, r.Enqueue("b"))

	v, ok := r.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = r.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "b", v)

	assert.True(t, r.IsEmpty())
}

func TestRing_SameReference(t *testing.T) {
	r, err := New[*int](2)
	require.NoError(t, err)

	x := 42
	require.NoError(t, r.Enqueue(&x))

	got, ok := r.Dequeue()
	require.True(t, ok)
	assert.Same(t, &x, got)
	assert.True(t, r.IsEmpty())
}

func TestRing_Full(t *testing.T) {
	r, err := New[int](2)
	require.NoError(t, err)

	require.NoError(t, r.Enqueue(1))
	require.NoError(t, r.Enqueue(2))
	assert.True(t, r.IsFull())

	err = r.Enqueue(3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrQueueFull))
	assert.Equal(t, 2, r.Size())

	v, ok := r.Peek()
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestRing_NilElement(t *testing.T) {
	r, err := New[*int](2)
	require.NoError(t, err)

	err = r.Enqueue(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNilElement))
	assert.Equal(t, 0, r.Size())

	var ifaceRing *Ring[any]
	ifaceRing, err = New[any](1)
	require.NoError(t, err)
	assert.Error(t, ifaceRing.Enqueue(nil))
}

func TestRing_ZeroValuesAreElements(t *testing.T) {
	r, err := New[int](2)
	require.NoError(t, err)

	require.NoError(t, r.Enqueue(0))
	v, ok := r.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 0, v)
}

func TestRing_EmptyDequeue(t *testing.T) {
	r, err := New[int](1)
	require.NoError(t, err)

	_, ok := r.Dequeue()
	assert.False(t, ok)
	_, ok = r.Peek()
	assert.False(t, ok)
}

func TestRing_WrapAround(t *testing.T) {
	r, err := New[int](3)
	require.NoError(t, err)

	next := 0
	expected := 0
	// Push the indices around the array several times.
	for round := 0; round < 10; round++ {
		for r.Size() < 2 {
			require.NoError(t, r.Enqueue(next))
			next++
		}
		v, ok := r.Dequeue()
		require.True(t, ok)
		assert.Equal(t, expected, v)
		expected++
		assert.LessOrEqual(t, r.Size(), r.Capacity())
	}
}

func TestRing_Clear(t *testing.T) {
	r, err := New[int](4)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Enqueue(i))
	}
	_, _ = r.Dequeue()

	r.Clear()
	assert.Equal(t, 0, r.Size())
	assert.True(t, r.IsEmpty())
	assert.Equal(t, 4, r.Capacity())

	for i := 10; i < 14; i++ {
		require.NoError(t, r.Enqueue(i))
	}
	assert.True(t, r.IsFull())

	v, ok := r.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestRing_ClearReleasesReferences(t *testing.T) {
	r, err := New[*int](2)
	require.NoError(t, err)

	x := 1
	require.NoError(t, r.Enqueue(&x))
	r.Clear()

	for _, slot := range r.slots {
		assert.Nil(t, slot)
	}
	assert.Equal(t, 1, x, "clear must not touch the referenced value")
}

func TestIsNil(t *testing.T) {
	var (
		p  *int
		m  map[string]int
		s  []int
		c  chan int
		f  func()
		ia any
	)
	assert.True(t, IsNil(p))
	assert.True(t, IsNil(m))
	assert.True(t, IsNil(s))
	assert.True(t, IsNil(c))
	assert.True(t, IsNil(f))
	assert.True(t, IsNil(ia))

	x := 0
	assert.False(t, IsNil(&x))
	assert.False(t, IsNil(0))
	assert.False(t, IsNil(""))
	assert.False(t, IsNil(struct{}{}))
	assert.False(t, IsNil([]int{}))
}
