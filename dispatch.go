package sequent

import (
	"context"
	"reflect"

	"github.com/roach88/sequent/expr"
	"github.com/roach88/sequent/qerr"
)

// execValue is the single dispatch decision every single-result terminal
// operation funnels through: delegate to the provider's asynchronous
// execution when the capability is present, otherwise execute synchronously
// in-process. Errors from either path propagate unchanged.
func execValue[R any](ctx context.Context, p Provider, call *expr.Call) (R, error) {
	var (
		out any
		err error
	)
	if ae, ok := p.(AsyncExecutor); ok {
		out, err = ae.ExecuteValue(ctx, call)
	} else {
		out, err = p.Execute(ctx, call)
	}
	var zero R
	if err != nil {
		return zero, err
	}
	return retype[R](call.Op, out)
}

// retype narrows an untyped provider result to the caller's result type.
// Providers may legitimately return a convertible kind (e.g. an int64 count
// from a database driver); anything unconvertible is an internal fault.
func retype[R any](op expr.Op, v any) (R, error) {
	if r, ok := v.(R); ok {
		return r, nil
	}
	var zero R
	if v == nil {
		return zero, nil
	}
	rt := expr.TypeOf[R]()
	rv := reflect.ValueOf(v)
	if rv.Type().ConvertibleTo(rt) {
		return rv.Convert(rt).Interface().(R), nil
	}
	return zero, qerr.New(qerr.CodeInternal, op.String(),
		"provider returned %T, want %s", v, rt)
}

// sourceCall builds the call expression for a terminal operation over q's
// source, binding the element type argument and appending any extra
// arguments (quoted predicates, selectors, seeds, comparers).
func sourceCall[T any](op expr.Op, src expr.Expression, extra ...expr.Expression) *expr.Call {
	args := append([]expr.Expression{src}, extra...)
	return expr.NewCall(op, []reflect.Type{expr.TypeOf[T]()}, args...)
}

func invalidArg(op, format string, args ...any) error {
	return qerr.New(qerr.CodeInvalidArgument, op, format, args...)
}

func requirePredicate(pred *expr.Lambda, op string) error {
	if pred == nil {
		return qerr.New(qerr.CodeInvalidArgument, op, "predicate is nil")
	}
	if len(pred.Params) != 1 {
		return qerr.New(qerr.CodeInvalidArgument, op,
			"predicate must take exactly one parameter, has %d", len(pred.Params))
	}
	return nil
}

func requireSelector(sel expr.Expression, op string) error {
	switch s := sel.(type) {
	case *expr.Lambda:
		if len(s.Params) != 1 {
			return qerr.New(qerr.CodeInvalidArgument, op,
				"selector must take exactly one parameter, has %d", len(s.Params))
		}
		return nil
	case *expr.Func:
		return nil
	case nil:
		return qerr.New(qerr.CodeInvalidArgument, op, "selector is nil")
	default:
		return qerr.New(qerr.CodeInvalidArgument, op, "selector must be a lambda or closure, got %T", sel)
	}
}
