// Package expr defines the expression-tree representation shared by every
// sequent provider.
//
// An expression tree is an inspectable description of a deferred query:
// composition operators (Where, Select, Skip, ...) and terminal operations
// (Count, Sum, First, ...) are all encoded as Call nodes over a closed
// operation enum, with predicates and selectors carried as quoted Lambda
// subtrees. Providers walk the tree and translate it for their backend; the
// in-process evaluator interprets it directly.
//
// All node types are immutable after construction. Rewrites (parameter
// substitution, visitor passes) always allocate new nodes and never mutate
// their inputs, so a tree may be safely shared between queries.
package expr
