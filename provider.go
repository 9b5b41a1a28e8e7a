package sequent

import (
	"context"

	"github.com/roach88/sequent/expr"
)

// Provider executes call expressions on behalf of a queryable sequence.
//
// Execute is the synchronous entry point: it runs the expression to
// completion on the calling goroutine and returns the operation's result.
// Every provider must implement it; the asynchronous capabilities below are
// optional upgrades detected at dispatch time with interface assertions.
type Provider interface {
	Execute(ctx context.Context, e expr.Expression) (any, error)
}

// AsyncExecutor is the optional single-result asynchronous capability.
//
// ExecuteValue submits the call expression to the backing source and blocks
// the calling goroutine cooperatively (honoring ctx) until the source
// completes that unit of work. The result is returned untyped; the
// dispatcher re-types it for the caller, which covers both the typed and
// untyped result shapes a backend may produce.
//
// A provider that does not implement AsyncExecutor is treated as
// synchronous-only and served by Execute instead.
type AsyncExecutor interface {
	ExecuteValue(ctx context.Context, e expr.Expression) (any, error)
}

// AsyncEnumerable is the optional streaming capability: execute an
// expression and yield its results one element at a time.
type AsyncEnumerable interface {
	ExecuteEnumerator(ctx context.Context, e expr.Expression) (Enumerator[any], error)
}

// Enumerator streams elements of a result sequence.
//
// The contract mirrors single-pass iteration: call Next until it reports
// false, reading Current after each successful advance. Reading Current
// before the first Next, or after Next has reported exhaustion, is a caller
// error with undefined result. Each Next may suspend (a provider round
// trip); cancellation of ctx surfaces as Next's error.
//
// An enumerator is owned by the caller that requested it, is not safe for
// concurrent use, and cannot be restarted. Close releases any backing
// resources (a cursor, a connection) and must be called exactly once.
type Enumerator[T any] interface {
	Next(ctx context.Context) (bool, error)
	Current() T
	Close() error
}
