package sequent

import (
	"context"

	"github.com/roach88/sequent/expr"
)

// SingleAsync returns the only element of the sequence. Zero elements is a
// NO_ELEMENTS error, more than one a MULTIPLE_ELEMENTS error, from either
// dispatch path.
func SingleAsync[T any](ctx context.Context, q *Queryable[T]) (T, error) {
	return execValue[T](ctx, q.provider, sourceCall[T](expr.OpSingle, q.exp))
}

// SingleWhereAsync returns the only element satisfying pred.
func SingleWhereAsync[T any](ctx context.Context, q *Queryable[T], pred *expr.Lambda) (T, error) {
	var zero T
	if err := requirePredicate(pred, "Single"); err != nil {
		return zero, err
	}
	return execValue[T](ctx, q.provider, sourceCall[T](expr.OpSingle, q.exp, pred))
}

// SingleOrDefaultAsync returns the only element, or the zero value when the
// sequence is empty. More than one element is still a MULTIPLE_ELEMENTS
// error: or-default suppresses only the not-found case.
func SingleOrDefaultAsync[T any](ctx context.Context, q *Queryable[T]) (T, error) {
	return execValue[T](ctx, q.provider, sourceCall[T](expr.OpSingleOrDefault, q.exp))
}

// SingleOrDefaultWhereAsync is SingleOrDefaultAsync over the elements
// satisfying pred.
func SingleOrDefaultWhereAsync[T any](ctx context.Context, q *Queryable[T], pred *expr.Lambda) (T, error) {
	var zero T
	if err := requirePredicate(pred, "SingleOrDefault"); err != nil {
		return zero, err
	}
	return execValue[T](ctx, q.provider, sourceCall[T](expr.OpSingleOrDefault, q.exp, pred))
}

// FirstAsync returns the first element. Empty is a NO_ELEMENTS error.
func FirstAsync[T any](ctx context.Context, q *Queryable[T]) (T, error) {
	return execValue[T](ctx, q.provider, sourceCall[T](expr.OpFirst, q.exp))
}

// FirstWhereAsync returns the first element satisfying pred.
func FirstWhereAsync[T any](ctx context.Context, q *Queryable[T], pred *expr.Lambda) (T, error) {
	var zero T
	if err := requirePredicate(pred, "First"); err != nil {
		return zero, err
	}
	return execValue[T](ctx, q.provider, sourceCall[T](expr.OpFirst, q.exp, pred))
}

// FirstOrDefaultAsync returns the first element, or the zero value when the
// sequence is empty.
func FirstOrDefaultAsync[T any](ctx context.Context, q *Queryable[T]) (T, error) {
	return execValue[T](ctx, q.provider, sourceCall[T](expr.OpFirstOrDefault, q.exp))
}

// FirstOrDefaultWhereAsync returns the first element satisfying pred, or
// the zero value when none does.
func FirstOrDefaultWhereAsync[T any](ctx context.Context, q *Queryable[T], pred *expr.Lambda) (T, error) {
	var zero T
	if err := requirePredicate(pred, "FirstOrDefault"); err != nil {
		return zero, err
	}
	return execValue[T](ctx, q.provider, sourceCall[T](expr.OpFirstOrDefault, q.exp, pred))
}

// LastAsync returns the last element. Empty is a NO_ELEMENTS error.
func LastAsync[T any](ctx context.Context, q *Queryable[T]) (T, error) {
	return execValue[T](ctx, q.provider, sourceCall[T](expr.OpLast, q.exp))
}

// LastWhereAsync returns the last element satisfying pred.
func LastWhereAsync[T any](ctx context.Context, q *Queryable[T], pred *expr.Lambda) (T, error) {
	var zero T
	if err := requirePredicate(pred, "Last"); err != nil {
		return zero, err
	}
	return execValue[T](ctx, q.provider, sourceCall[T](expr.OpLast, q.exp, pred))
}

// LastOrDefaultAsync returns the last element, or the zero value when the
// sequence is empty.
func LastOrDefaultAsync[T any](ctx context.Context, q *Queryable[T]) (T, error) {
	return execValue[T](ctx, q.provider, sourceCall[T](expr.OpLastOrDefault, q.exp))
}

// LastOrDefaultWhereAsync returns the last element satisfying pred, or the
// zero value when none does.
func LastOrDefaultWhereAsync[T any](ctx context.Context, q *Queryable[T], pred *expr.Lambda) (T, error) {
	var zero T
	if err := requirePredicate(pred, "LastOrDefault"); err != nil {
		return zero, err
	}
	return execValue[T](ctx, q.provider, sourceCall[T](expr.OpLastOrDefault, q.exp, pred))
}

// ElementAtAsync returns the element at the zero-based index. An index
// outside the sequence is an INDEX_OUT_OF_RANGE error.
func ElementAtAsync[T any](ctx context.Context, q *Queryable[T], index int) (T, error) {
	return execValue[T](ctx, q.provider,
		sourceCall[T](expr.OpElementAt, q.exp, expr.Const(index)))
}

// ElementAtOrDefaultAsync returns the element at the zero-based index, or
// the zero value when the index is outside the sequence.
func ElementAtOrDefaultAsync[T any](ctx context.Context, q *Queryable[T], index int) (T, error) {
	return execValue[T](ctx, q.provider,
		sourceCall[T](expr.OpElementAtOrDefault, q.exp, expr.Const(index)))
}

// ContainsAsync reports whether the sequence contains value, compared with
// normalized equality.
func ContainsAsync[T any](ctx context.Context, q *Queryable[T], value T) (bool, error) {
	return execValue[bool](ctx, q.provider,
		sourceCall[T](expr.OpContains, q.exp, expr.TypedConst(value)))
}

// ContainsComparerAsync reports whether the sequence contains value under
// the supplied equality comparer.
func ContainsComparerAsync[T any](ctx context.Context, q *Queryable[T], value T, eq Equaler[T]) (bool, error) {
	if eq == nil {
		return false, invalidArg("Contains", "comparer is nil")
	}
	call := sourceCall[T](expr.OpContains, q.exp,
		expr.TypedConst(value), expr.Const(equalerAdapter[T]{eq: eq}))
	return execValue[bool](ctx, q.provider, call)
}

// SequenceEqualAsync reports whether the sequence yields exactly the
// elements of other, in order, under normalized equality.
func SequenceEqualAsync[T any](ctx context.Context, q *Queryable[T], other []T) (bool, error) {
	return execValue[bool](ctx, q.provider,
		sourceCall[T](expr.OpSequenceEqual, q.exp, expr.TypedConst(other)))
}

// SequenceEqualComparerAsync is SequenceEqualAsync under a caller-supplied
// equality comparer.
func SequenceEqualComparerAsync[T any](ctx context.Context, q *Queryable[T], other []T, eq Equaler[T]) (bool, error) {
	if eq == nil {
		return false, invalidArg("SequenceEqual", "comparer is nil")
	}
	call := sourceCall[T](expr.OpSequenceEqual, q.exp,
		expr.TypedConst(other), expr.Const(equalerAdapter[T]{eq: eq}))
	return execValue[bool](ctx, q.provider, call)
}
