// Package evaluate interprets expression trees against in-memory data.
//
// It backs the synchronous execution path: when a queryable's provider has
// no asynchronous capability, the dispatcher hands the same call expression
// it would have sent to a remote-capable provider to this interpreter
// instead. The interpreter therefore implements the exact edge-case and
// error semantics the providers do - same error codes, same cardinality
// rules, same ordering - so callers cannot tell the two paths apart.
package evaluate
