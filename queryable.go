package sequent

import (
	"fmt"
	"reflect"

	"github.com/roach88/sequent/expr"
)

// Queryable is a deferred computation over a sequence of T, paired with the
// provider that knows how to execute it.
//
// A Queryable is immutable: every composition returns a new handle sharing
// the provider, and nothing executes until a terminal operation runs. The
// same handle may be composed any number of times and held indefinitely.
type Queryable[T any] struct {
	exp      expr.Expression
	provider Provider
}

// New wraps an expression and provider as a queryable sequence. It is
// intended for provider packages building their root sequences; ordinary
// callers start from From or a provider's own constructor.
func New[T any](p Provider, e expr.Expression) *Queryable[T] {
	if p == nil {
		panic("sequent: New requires a provider")
	}
	if e == nil {
		panic("sequent: New requires an expression")
	}
	return &Queryable[T]{exp: e, provider: p}
}

// From wraps an in-memory slice as a synchronous-only queryable sequence.
// The slice is not copied; callers should not mutate it while queries over
// it are live.
func From[T any](items []T) *Queryable[T] {
	return &Queryable[T]{
		exp:      &expr.Constant{Value: items, Of: expr.TypeOf[[]T]()},
		provider: Local(),
	}
}

// Expression returns the sequence's expression tree.
func (q *Queryable[T]) Expression() expr.Expression { return q.exp }

// Provider returns the sequence's backing provider.
func (q *Queryable[T]) Provider() Provider { return q.provider }

// Param allocates a lambda parameter typed to the sequence's element type.
// Use it to build predicates without naming T at the call site.
func (q *Queryable[T]) Param(name string) *expr.Parameter {
	return expr.NewParam[T](name)
}

// Where filters the sequence by a quoted predicate. The predicate must be a
// single-parameter lambda; a nil or malformed predicate is a programming
// error and panics.
func (q *Queryable[T]) Where(pred *expr.Lambda) *Queryable[T] {
	mustBePredicate(pred, "Where")
	return &Queryable[T]{
		exp:      expr.NewCall(expr.OpWhere, []reflect.Type{expr.TypeOf[T]()}, q.exp, pred),
		provider: q.provider,
	}
}

// WhereFunc filters by an opaque Go closure. The resulting sequence is
// interpretable in-process but not translatable by remote-capable
// providers; prefer Where with an expression predicate for those.
func (q *Queryable[T]) WhereFunc(pred func(T) bool) *Queryable[T] {
	if pred == nil {
		panic("sequent: WhereFunc requires a predicate")
	}
	return &Queryable[T]{
		exp:      expr.NewCall(expr.OpWhere, []reflect.Type{expr.TypeOf[T]()}, q.exp, expr.FuncOf(pred)),
		provider: q.provider,
	}
}

// Skip bypasses the first n elements. Negative n behaves as zero.
func (q *Queryable[T]) Skip(n int) *Queryable[T] {
	return &Queryable[T]{
		exp:      expr.NewCall(expr.OpSkip, []reflect.Type{expr.TypeOf[T]()}, q.exp, expr.Const(n)),
		provider: q.provider,
	}
}

// Take keeps at most the first n elements. Negative n behaves as zero.
func (q *Queryable[T]) Take(n int) *Queryable[T] {
	return &Queryable[T]{
		exp:      expr.NewCall(expr.OpTake, []reflect.Type{expr.TypeOf[T]()}, q.exp, expr.Const(n)),
		provider: q.provider,
	}
}

// DefaultIfEmpty yields the sequence unchanged unless it is empty, in which
// case it yields exactly one zero-valued element.
func (q *Queryable[T]) DefaultIfEmpty() *Queryable[T] {
	return &Queryable[T]{
		exp:      expr.NewCall(expr.OpDefaultIfEmpty, []reflect.Type{expr.TypeOf[T]()}, q.exp),
		provider: q.provider,
	}
}

// Select projects each element through a quoted selector (a Lambda or,
// for local-only use, a Func).
func Select[T, R any](q *Queryable[T], sel expr.Expression) *Queryable[R] {
	mustBeSelector(sel, "Select")
	return &Queryable[R]{
		exp: expr.NewCall(expr.OpSelect,
			[]reflect.Type{expr.TypeOf[T](), expr.TypeOf[R]()}, q.exp, sel),
		provider: q.provider,
	}
}

// SelectFunc projects through an opaque Go closure. Like WhereFunc, the
// result is local-only for translating providers.
func SelectFunc[T, R any](q *Queryable[T], fn func(T) R) *Queryable[R] {
	if fn == nil {
		panic("sequent: SelectFunc requires a selector")
	}
	return Select[T, R](q, expr.FuncOf(fn))
}

func mustBePredicate(pred *expr.Lambda, op string) {
	if pred == nil {
		panic(fmt.Sprintf("sequent: %s requires a predicate", op))
	}
	if len(pred.Params) != 1 {
		panic(fmt.Sprintf("sequent: %s predicate must take exactly one parameter, has %d", op, len(pred.Params)))
	}
}

func mustBeSelector(sel expr.Expression, op string) {
	switch s := sel.(type) {
	case *expr.Lambda:
		if len(s.Params) != 1 {
			panic(fmt.Sprintf("sequent: %s selector must take exactly one parameter, has %d", op, len(s.Params)))
		}
	case *expr.Func:
	case nil:
		panic(fmt.Sprintf("sequent: %s requires a selector", op))
	default:
		panic(fmt.Sprintf("sequent: %s selector must be a lambda or closure, got %T", op, sel))
	}
}
