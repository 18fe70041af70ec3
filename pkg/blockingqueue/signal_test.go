package blockingqueue

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal_ClaimAndPost(t *testing.T) {
	s := newSignal(2)

	epoch, waited, err := s.claim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), epoch)
	assert.Zero(t, waited)
	assert.Equal(t, 1, s.load())

	assert.True(t, s.post(epoch))
	assert.Equal(t, 2, s.load())
}

func TestSignal_TryClaim(t *testing.T) {
	s := newSignal(1)

	_, ok, err := s.tryClaim()
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = s.tryClaim()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.load())
}

func TestSignal_ClaimWaitsForPost(t *testing.T) {
	s := newSignal(0)

	type result struct {
		waited time.Duration
		err    error
	}
	done := make(chan result, 1)
	go func() {
		_, waited, err := s.claim(context.Background())
		done <- result{waited, err}
	}()

	time.Sleep(blockWindow)
	s.post(0)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Greater(t, r.waited, time.Duration(0))
	case <-time.After(time.Second):
		t.Fatal("post did not wake the waiter")
	}
	assert.Equal(t, 0, s.load())
}

func TestSignal_ResetStartsNewEpoch(t *testing.T) {
	s := newSignal(0)

	done := make(chan uint64, 1)
	go func() {
		epoch, _, err := s.claim(context.Background())
		if err == nil {
			done <- epoch
		}
	}()

	time.Sleep(blockWindow)
	s.reset(1, 3)

	select {
	case epoch := <-done:
		assert.Equal(t, uint64(3), epoch)
	case <-time.After(time.Second):
		t.Fatal("reset did not wake the waiter")
	}

	assert.False(t, s.post(2), "post from an old epoch must be dropped")
	assert.Equal(t, 0, s.load())
	assert.True(t, s.post(3))
	assert.Equal(t, 1, s.load())
}

func TestSignal_ContextCancel(t *testing.T) {
	s := newSignal(0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := s.claim(ctx)
		done <- err
	}()

	time.Sleep(blockWindow)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancel did not wake the waiter")
	}
	assert.Equal(t, 0, s.load())
}

func TestSignal_Close(t *testing.T) {
	s := newSignal(0)
	closed := stderrors.New("closed")

	done := make(chan error, 1)
	go func() {
		_, _, err := s.claim(context.Background())
		done <- err
	}()

	time.Sleep(blockWindow)
	s.close(closed)

	select {
	case err := <-done:
		assert.Same(t, closed, err)
	case <-time.After(time.Second):
		t.Fatal("close did not wake the waiter")
	}

	_, ok, err := s.tryClaim()
	assert.False(t, ok)
	assert.Same(t, closed, err)
	assert.False(t, s.post(0))

	// The first close wins.
	s.close(stderrors.New("other"))
	_, _, err = s.claim(context.Background())
	assert.Same(t, closed, err)
}
