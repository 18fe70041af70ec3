package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"queue full", ErrQueueFull, true},
		{"queue empty", ErrQueueEmpty, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"nil element", ErrNilElement, false},
		{"corrupted", ErrCorrupted, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsTransient(test.err), "error: %v", test.err)
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"corrupted", ErrCorrupted, true},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"queue full", ErrQueueFull, false},
		{"panic in message", fmt.Errorf("panic: system failure"), true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsFatal(test.err), "error: %v", test.err)
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid capacity", ErrInvalidCapacity, true},
		{"nil element", ErrNilElement, true},
		{"queue closed", ErrQueueClosed, true},
		{"already stopped", ErrAlreadyStopped, true},
		{"queue full", ErrQueueFull, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsInvalid(test.err), "error: %v", test.err)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil error", nil, ErrorTransient},
		{"queue full", ErrQueueFull, ErrorTransient},
		{"corrupted", ErrCorrupted, ErrorFatal},
		{"nil element", ErrNilElement, ErrorInvalid},
		{"unknown error", fmt.Errorf("unknown error"), ErrorTransient},
		{"classified error", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Classify(test.err), "error: %v", test.err)
		})
	}
}

func TestClassifiedError(t *testing.T) {
	baseErr := fmt.Errorf("base error")
	ce := newClassified(ErrorTransient, baseErr, "testComponent", "testOperation", "custom message")

	assert.Equal(t, ErrorTransient, ce.Class)
	assert.Equal(t, "testComponent", ce.Component)
	assert.Equal(t, "testOperation", ce.Operation)
	assert.Equal(t, "custom message", ce.Error())
	assert.True(t, errors.Is(ce, baseErr), "classified error should unwrap to base error")

	bare := newClassified(ErrorTransient, baseErr, "testComponent", "testOperation", "")
	assert.Equal(t, "base error", bare.Error())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "component", "method", "action"))

	result := Wrap(fmt.Errorf("original error"), "BlockingQueue", "Enqueue", "element validation")
	require.Error(t, result)
	assert.Equal(t, "BlockingQueue.Enqueue: element validation failed: original error", result.Error())
}

func TestWrapClassified(t *testing.T) {
	tests := []struct {
		name     string
		wrapFunc func(error, string, string, string) error
		class    ErrorClass
	}{
		{"WrapTransient", WrapTransient, ErrorTransient},
		{"WrapFatal", WrapFatal, ErrorFatal},
		{"WrapInvalid", WrapInvalid, ErrorInvalid},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Nil(t, test.wrapFunc(nil, "component", "method", "action"))

			result := test.wrapFunc(ErrQueueClosed, "component", "method", "action")

			var ce *ClassifiedError
			require.True(t, errors.As(result, &ce), "result should be a ClassifiedError")
			assert.Equal(t, test.class, ce.Class)
			assert.Equal(t, "component", ce.Component)
			assert.Equal(t, "method", ce.Operation)
			assert.True(t, strings.Contains(ce.Error(), "component.method: action failed"))
			assert.True(t, Is(result, ErrQueueClosed), "sentinel should survive wrapping")
		})
	}
}

func TestClassificationOverridesSentinel(t *testing.T) {
	// ErrQueueFull alone is transient; an explicit fatal wrap wins.
	err := WrapFatal(ErrQueueFull, "BlockingQueue", "Enqueue", "ring enqueue")
	assert.True(t, IsFatal(err))
	assert.False(t, IsTransient(err))
	assert.Equal(t, ErrorFatal, Classify(err))
}
