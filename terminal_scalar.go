package sequent

import (
	"cmp"
	"context"
	"reflect"

	"github.com/roach88/sequent/expr"
)

// Number constrains the numeric element kinds the arithmetic terminals
// accept. Nullable variants operate over *N and skip absent values.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// CountAsync returns the number of elements in the sequence.
func CountAsync[T any](ctx context.Context, q *Queryable[T]) (int, error) {
	return execValue[int](ctx, q.provider, sourceCall[T](expr.OpCount, q.exp))
}

// CountWhereAsync returns the number of elements satisfying pred.
func CountWhereAsync[T any](ctx context.Context, q *Queryable[T], pred *expr.Lambda) (int, error) {
	if err := requirePredicate(pred, "Count"); err != nil {
		return 0, err
	}
	return execValue[int](ctx, q.provider, sourceCall[T](expr.OpCount, q.exp, pred))
}

// LongCountAsync returns the element count as an int64.
func LongCountAsync[T any](ctx context.Context, q *Queryable[T]) (int64, error) {
	return execValue[int64](ctx, q.provider, sourceCall[T](expr.OpLongCount, q.exp))
}

// LongCountWhereAsync returns the count of elements satisfying pred as an
// int64.
func LongCountWhereAsync[T any](ctx context.Context, q *Queryable[T], pred *expr.Lambda) (int64, error) {
	if err := requirePredicate(pred, "LongCount"); err != nil {
		return 0, err
	}
	return execValue[int64](ctx, q.provider, sourceCall[T](expr.OpLongCount, q.exp, pred))
}

// SumAsync returns the sum of a numeric sequence. An empty sequence sums to
// zero.
func SumAsync[N Number](ctx context.Context, q *Queryable[N]) (N, error) {
	return execValue[N](ctx, q.provider, sourceCall[N](expr.OpSum, q.exp))
}

// SumSelectAsync sums the projection of each element through sel.
func SumSelectAsync[T any, N Number](ctx context.Context, q *Queryable[T], sel expr.Expression) (N, error) {
	var zero N
	if err := requireSelector(sel, "Sum"); err != nil {
		return zero, err
	}
	call := expr.NewCall(expr.OpSum,
		[]reflect.Type{expr.TypeOf[T](), expr.TypeOf[N]()}, q.exp, sel)
	return execValue[N](ctx, q.provider, call)
}

// SumNullableAsync sums a sequence of optional numerics, skipping absent
// values. The result preserves nullability: it is never nil, but its
// pointer shape matches the element shape, and an all-absent sequence sums
// to zero.
func SumNullableAsync[N Number](ctx context.Context, q *Queryable[*N]) (*N, error) {
	return execValue[*N](ctx, q.provider, sourceCall[*N](expr.OpSum, q.exp))
}

// SumNullableSelectAsync sums an optional-numeric projection, skipping
// absent values.
func SumNullableSelectAsync[T any, N Number](ctx context.Context, q *Queryable[T], sel expr.Expression) (*N, error) {
	if err := requireSelector(sel, "Sum"); err != nil {
		return nil, err
	}
	call := expr.NewCall(expr.OpSum,
		[]reflect.Type{expr.TypeOf[T](), expr.TypeOf[*N]()}, q.exp, sel)
	return execValue[*N](ctx, q.provider, call)
}

// AverageAsync returns the arithmetic mean of a numeric sequence. An empty
// sequence is a NO_ELEMENTS error.
func AverageAsync[N Number](ctx context.Context, q *Queryable[N]) (float64, error) {
	return execValue[float64](ctx, q.provider, sourceCall[N](expr.OpAverage, q.exp))
}

// AverageSelectAsync averages the projection of each element through sel.
func AverageSelectAsync[T any, N Number](ctx context.Context, q *Queryable[T], sel expr.Expression) (float64, error) {
	if err := requireSelector(sel, "Average"); err != nil {
		return 0, err
	}
	call := expr.NewCall(expr.OpAverage,
		[]reflect.Type{expr.TypeOf[T](), expr.TypeOf[N]()}, q.exp, sel)
	return execValue[float64](ctx, q.provider, call)
}

// AverageNullableAsync averages a sequence of optional numerics, skipping
// absent values. A sequence with no present values yields nil rather than
// an error.
func AverageNullableAsync[N Number](ctx context.Context, q *Queryable[*N]) (*float64, error) {
	return execValue[*float64](ctx, q.provider, sourceCall[*N](expr.OpAverage, q.exp))
}

// AverageNullableSelectAsync averages an optional-numeric projection,
// skipping absent values; all-absent yields nil.
func AverageNullableSelectAsync[T any, N Number](ctx context.Context, q *Queryable[T], sel expr.Expression) (*float64, error) {
	if err := requireSelector(sel, "Average"); err != nil {
		return nil, err
	}
	call := expr.NewCall(expr.OpAverage,
		[]reflect.Type{expr.TypeOf[T](), expr.TypeOf[*N]()}, q.exp, sel)
	return execValue[*float64](ctx, q.provider, call)
}

// MinAsync returns the minimum element. Empty is a NO_ELEMENTS error.
func MinAsync[T cmp.Ordered](ctx context.Context, q *Queryable[T]) (T, error) {
	return execValue[T](ctx, q.provider, sourceCall[T](expr.OpMin, q.exp))
}

// MinSelectAsync returns the minimum of the projection through sel.
func MinSelectAsync[T any, R cmp.Ordered](ctx context.Context, q *Queryable[T], sel expr.Expression) (R, error) {
	var zero R
	if err := requireSelector(sel, "Min"); err != nil {
		return zero, err
	}
	call := expr.NewCall(expr.OpMin,
		[]reflect.Type{expr.TypeOf[T](), expr.TypeOf[R]()}, q.exp, sel)
	return execValue[R](ctx, q.provider, call)
}

// MaxAsync returns the maximum element. Empty is a NO_ELEMENTS error.
func MaxAsync[T cmp.Ordered](ctx context.Context, q *Queryable[T]) (T, error) {
	return execValue[T](ctx, q.provider, sourceCall[T](expr.OpMax, q.exp))
}

// MaxSelectAsync returns the maximum of the projection through sel.
func MaxSelectAsync[T any, R cmp.Ordered](ctx context.Context, q *Queryable[T], sel expr.Expression) (R, error) {
	var zero R
	if err := requireSelector(sel, "Max"); err != nil {
		return zero, err
	}
	call := expr.NewCall(expr.OpMax,
		[]reflect.Type{expr.TypeOf[T](), expr.TypeOf[R]()}, q.exp, sel)
	return execValue[R](ctx, q.provider, call)
}

// AggregateAsync folds the sequence with fn, seeding the fold with the
// first element. Empty is a NO_ELEMENTS error.
func AggregateAsync[T any](ctx context.Context, q *Queryable[T], fn func(T, T) T) (T, error) {
	var zero T
	if fn == nil {
		return zero, invalidArg("Aggregate", "fold function is nil")
	}
	call := sourceCall[T](expr.OpAggregate, q.exp, expr.FuncOf(fn))
	return execValue[T](ctx, q.provider, call)
}

// AggregateSeedAsync folds the sequence into an accumulator starting from
// seed. An empty sequence yields the seed.
func AggregateSeedAsync[T, A any](ctx context.Context, q *Queryable[T], seed A, fn func(A, T) A) (A, error) {
	var zero A
	if fn == nil {
		return zero, invalidArg("Aggregate", "fold function is nil")
	}
	call := expr.NewCall(expr.OpAggregate,
		[]reflect.Type{expr.TypeOf[T](), expr.TypeOf[A]()},
		q.exp, expr.TypedConst(seed), expr.FuncOf(fn))
	return execValue[A](ctx, q.provider, call)
}

// AggregateSeedResultAsync folds the sequence from seed, then maps the
// final accumulator through sel.
func AggregateSeedResultAsync[T, A, R any](ctx context.Context, q *Queryable[T], seed A, fn func(A, T) A, sel func(A) R) (R, error) {
	var zero R
	if fn == nil {
		return zero, invalidArg("Aggregate", "fold function is nil")
	}
	if sel == nil {
		return zero, invalidArg("Aggregate", "result selector is nil")
	}
	call := expr.NewCall(expr.OpAggregate,
		[]reflect.Type{expr.TypeOf[T](), expr.TypeOf[A](), expr.TypeOf[R]()},
		q.exp, expr.TypedConst(seed), expr.FuncOf(fn), expr.FuncOf(sel))
	return execValue[R](ctx, q.provider, call)
}

// AnyAsync reports whether the sequence contains any element.
func AnyAsync[T any](ctx context.Context, q *Queryable[T]) (bool, error) {
	return execValue[bool](ctx, q.provider, sourceCall[T](expr.OpAny, q.exp))
}

// AnyWhereAsync reports whether any element satisfies pred.
func AnyWhereAsync[T any](ctx context.Context, q *Queryable[T], pred *expr.Lambda) (bool, error) {
	if err := requirePredicate(pred, "Any"); err != nil {
		return false, err
	}
	return execValue[bool](ctx, q.provider, sourceCall[T](expr.OpAny, q.exp, pred))
}

// AllAsync reports whether every element satisfies pred. An empty sequence
// vacuously satisfies any predicate.
func AllAsync[T any](ctx context.Context, q *Queryable[T], pred *expr.Lambda) (bool, error) {
	if err := requirePredicate(pred, "All"); err != nil {
		return false, err
	}
	return execValue[bool](ctx, q.provider, sourceCall[T](expr.OpAll, q.exp, pred))
}
