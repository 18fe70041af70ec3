// Package errors provides standardized error handling for semqueue packages.
//
// # Overview
//
// Errors fall into three classes:
//
//   - Transient: the condition may clear on its own (queue full on a non-blocking
//     enqueue, queue empty on a non-blocking dequeue, context deadline)
//   - Invalid: the caller passed something unusable (non-positive capacity, nil
//     element) or used a queue after Close
//   - Fatal: the queue's internal accounting no longer matches its contents; the
//     instance has been poisoned and must not be used again
//
// # Error Wrapping Pattern
//
// All wrapping follows the format:
//
//	"component.method: action failed: %w"
//
// Three wrappers set the classification explicitly:
//
//	errors.WrapTransient(err, "BlockingQueue", "TryEnqueue", "capacity claim")
//	errors.WrapInvalid(err, "BlockingQueue", "Enqueue", "element validation")
//	errors.WrapFatal(err, "BlockingQueue", "Dequeue", "ring dequeue")
//
// Sentinels survive wrapping, so callers match on them directly:
//
//	if errors.Is(err, errors.ErrQueueClosed) {
//	    return
//	}
//
// Is and As are re-exported so code importing this package under the name
// "errors" does not also need the standard library package.
package errors
