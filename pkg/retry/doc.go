// Package retry backs off and retries operations that fail with transient errors.
//
// Whether an error is worth another attempt is decided by errors.IsTransient,
// so a full queue (errors.ErrQueueFull) or a context deadline is retried while
// a closed queue or a nil element fails immediately.
//
// # Usage
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return q.TryEnqueue(item)
//	})
//
// When attempts run out the last error is returned wrapped, so callers can
// still inspect it with errors.Is and fall back to a blocking call.
//
// Delays grow by Multiplier from InitialDelay up to MaxDelay, with optional
// jitter of up to 25%. Cancelling ctx stops the loop during backoff.
package retry
