// Package sequent provides deferred, composable queryable sequences with
// asynchronous provider dispatch.
//
// A Queryable is an inspectable description of a computation over a
// sequence: composing it (Where, Skip, Take, joins) builds an expression
// tree and executes nothing. Terminal operations (CountAsync, SumAsync,
// SingleAsync, ToSliceAsync, ...) execute the tree through the sequence's
// provider. When the provider declares asynchronous capability, the call
// expression is delegated to it and the caller's goroutine suspends until
// the provider completes; otherwise the same expression is executed
// synchronously in-process. The two paths share one error taxonomy, so
// callers cannot observe which path served them.
//
// Local, in-memory sequences come from From; provider-backed sequences come
// from provider packages such as sqliteq.
package sequent
