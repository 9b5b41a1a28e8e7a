package evaluate

import (
	"context"
	"reflect"

	"github.com/roach88/sequent/expr"
	"github.com/roach88/sequent/qerr"
)

// seq is the interpreter's working representation of a sequence: the
// element type plus the already-materialized elements, in order.
type seq struct {
	elem  reflect.Type
	elems []reflect.Value
}

// env binds lambda parameters to values during body evaluation.
type env map[*expr.Parameter]reflect.Value

func (e env) extend(params []*expr.Parameter, args []reflect.Value) env {
	out := make(env, len(e)+len(params))
	for k, v := range e {
		out[k] = v
	}
	for i, p := range params {
		out[p] = args[i]
	}
	return out
}

// evalSeq materializes a sequence-valued expression.
func evalSeq(ctx context.Context, e expr.Expression, vars env) (*seq, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch n := e.(type) {
	case *expr.Constant:
		return seqFromValue(reflect.ValueOf(n.Value))
	case *expr.Source:
		return nil, qerr.New(qerr.CodeNotTranslatable, "",
			"provider source %q cannot be evaluated in-process", n.Name)
	case *expr.Call:
		return evalSeqCall(ctx, n, vars)
	case *expr.Field, *expr.Parameter:
		v, err := evalScalar(ctx, e, vars)
		if err != nil {
			return nil, err
		}
		return seqFromValue(v)
	default:
		return nil, qerr.New(qerr.CodeInternal, "", "expression %T is not a sequence", e)
	}
}

func seqFromValue(v reflect.Value) (*seq, error) {
	for v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return nil, qerr.New(qerr.CodeInternal, "", "sequence value is not a slice")
	}
	s := &seq{elem: v.Type().Elem()}
	for i := 0; i < v.Len(); i++ {
		s.elems = append(s.elems, v.Index(i))
	}
	return s, nil
}

// evalSeqCall evaluates the composition operations. Terminal operations are
// handled by evalCall in evaluate.go.
func evalSeqCall(ctx context.Context, c *expr.Call, vars env) (*seq, error) {
	switch c.Op {
	case expr.OpWhere:
		src, err := evalSeq(ctx, c.Args[0], vars)
		if err != nil {
			return nil, err
		}
		return filterSeq(ctx, src, c.Args[1], vars)

	case expr.OpSelect:
		src, err := evalSeq(ctx, c.Args[0], vars)
		if err != nil {
			return nil, err
		}
		out := &seq{elem: c.TypeArgs[1]}
		for _, el := range src.elems {
			mapped, err := apply(ctx, c.Args[1], vars, el)
			if err != nil {
				return nil, err
			}
			out.elems = append(out.elems, mapped)
		}
		return out, nil

	case expr.OpSkip:
		src, err := evalSeq(ctx, c.Args[0], vars)
		if err != nil {
			return nil, err
		}
		n, err := intArg(ctx, c.Args[1], vars)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			n = 0
		}
		if n > len(src.elems) {
			n = len(src.elems)
		}
		return &seq{elem: src.elem, elems: src.elems[n:]}, nil

	case expr.OpTake:
		src, err := evalSeq(ctx, c.Args[0], vars)
		if err != nil {
			return nil, err
		}
		n, err := intArg(ctx, c.Args[1], vars)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			n = 0
		}
		if n > len(src.elems) {
			n = len(src.elems)
		}
		return &seq{elem: src.elem, elems: src.elems[:n]}, nil

	case expr.OpDefaultIfEmpty:
		src, err := evalSeq(ctx, c.Args[0], vars)
		if err != nil {
			return nil, err
		}
		if len(src.elems) > 0 {
			return src, nil
		}
		def := reflect.Zero(src.elem)
		if len(c.Args) == 2 {
			v, err := evalScalar(ctx, c.Args[1], vars)
			if err != nil {
				return nil, err
			}
			def = v
		}
		return &seq{elem: src.elem, elems: []reflect.Value{def}}, nil

	case expr.OpGroupJoin:
		return evalGroupJoin(ctx, c, vars)

	case expr.OpSelectMany:
		return evalSelectMany(ctx, c, vars)

	default:
		return nil, qerr.New(qerr.CodeInternal, c.Op.String(),
			"operation is not a sequence composition")
	}
}

func filterSeq(ctx context.Context, src *seq, pred expr.Expression, vars env) (*seq, error) {
	out := &seq{elem: src.elem}
	for _, el := range src.elems {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keep, err := applyBool(ctx, pred, vars, el)
		if err != nil {
			return nil, err
		}
		if keep {
			out.elems = append(out.elems, el)
		}
	}
	return out, nil
}

// evalGroupJoin pairs each left element with the slice of right elements
// sharing its key. Result order is left-major. The composite shape is
// produced by the result selector, which for the left-outer-join composer
// is a typed closure constructing the internal composite row.
func evalGroupJoin(ctx context.Context, c *expr.Call, vars env) (*seq, error) {
	left, err := evalSeq(ctx, c.Args[0], vars)
	if err != nil {
		return nil, err
	}
	right, err := evalSeq(ctx, c.Args[1], vars)
	if err != nil {
		return nil, err
	}
	leftKey, rightKey, resultSel := c.Args[2], c.Args[3], c.Args[4]

	rightKeys := make([]reflect.Value, len(right.elems))
	for i, r := range right.elems {
		k, err := apply(ctx, rightKey, vars, r)
		if err != nil {
			return nil, err
		}
		rightKeys[i] = k
	}

	out := &seq{elem: c.TypeArgs[3]}
	for _, l := range left.elems {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lk, err := apply(ctx, leftKey, vars, l)
		if err != nil {
			return nil, err
		}
		matches := reflect.MakeSlice(reflect.SliceOf(right.elem), 0, 0)
		for i, r := range right.elems {
			if equal(lk, rightKeys[i]) {
				matches = reflect.Append(matches, coerceTo(r, right.elem))
			}
		}
		composite, err := apply(ctx, resultSel, vars, l, matches)
		if err != nil {
			return nil, err
		}
		out.elems = append(out.elems, composite)
	}
	return out, nil
}

// evalSelectMany flattens a per-element collection, applying the result
// selector to (source element, collection element) pairs.
func evalSelectMany(ctx context.Context, c *expr.Call, vars env) (*seq, error) {
	src, err := evalSeq(ctx, c.Args[0], vars)
	if err != nil {
		return nil, err
	}
	collectionSel, resultSel := c.Args[1], c.Args[2]

	out := &seq{elem: c.TypeArgs[2]}
	for _, el := range src.elems {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		coll, err := applySeq(ctx, collectionSel, vars, el)
		if err != nil {
			return nil, err
		}
		for _, item := range coll.elems {
			mapped, err := apply(ctx, resultSel, vars, el, item)
			if err != nil {
				return nil, err
			}
			out.elems = append(out.elems, mapped)
		}
	}
	return out, nil
}

// apply invokes a quoted lambda or opaque closure with the given arguments.
func apply(ctx context.Context, f expr.Expression, vars env, args ...reflect.Value) (reflect.Value, error) {
	switch fn := f.(type) {
	case *expr.Lambda:
		if len(fn.Params) != len(args) {
			return reflect.Value{}, qerr.New(qerr.CodeInternal, "",
				"lambda expects %d parameters, got %d arguments", len(fn.Params), len(args))
		}
		return evalScalar(ctx, fn.Body, vars.extend(fn.Params, args))
	case *expr.Func:
		return callFunc(fn, args)
	default:
		return reflect.Value{}, qerr.New(qerr.CodeInternal, "",
			"expression %T is not invocable", f)
	}
}

// applySeq is apply for selectors whose result is itself a sequence, such
// as the flattening step of a left-outer join.
func applySeq(ctx context.Context, f expr.Expression, vars env, args ...reflect.Value) (*seq, error) {
	if fn, ok := f.(*expr.Lambda); ok {
		if len(fn.Params) != len(args) {
			return nil, qerr.New(qerr.CodeInternal, "",
				"lambda expects %d parameters, got %d arguments", len(fn.Params), len(args))
		}
		return evalSeq(ctx, fn.Body, vars.extend(fn.Params, args))
	}
	v, err := apply(ctx, f, vars, args...)
	if err != nil {
		return nil, err
	}
	return seqFromValue(v)
}

func applyBool(ctx context.Context, pred expr.Expression, vars env, el reflect.Value) (bool, error) {
	v, err := apply(ctx, pred, vars, el)
	if err != nil {
		return false, err
	}
	if v.Kind() != reflect.Bool {
		return false, qerr.New(qerr.CodeInternal, "", "predicate returned %v, want bool", v.Kind())
	}
	return v.Bool(), nil
}

func callFunc(fn *expr.Func, args []reflect.Value) (reflect.Value, error) {
	fv := reflect.ValueOf(fn.Fn)
	ft := fv.Type()
	if ft.NumIn() != len(args) {
		return reflect.Value{}, qerr.New(qerr.CodeInternal, "",
			"closure expects %d arguments, got %d", ft.NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = coerceTo(a, ft.In(i))
	}
	out := fv.Call(in)
	if len(out) != 1 {
		return reflect.Value{}, qerr.New(qerr.CodeInternal, "",
			"closure returns %d values, want 1", len(out))
	}
	return out[0], nil
}

// evalScalar evaluates a value-producing expression under an environment.
func evalScalar(ctx context.Context, e expr.Expression, vars env) (reflect.Value, error) {
	switch n := e.(type) {
	case *expr.Constant:
		if n.Value == nil {
			if n.Of != nil {
				return reflect.Zero(n.Of), nil
			}
			return reflect.Value{}, nil
		}
		return reflect.ValueOf(n.Value), nil

	case *expr.Parameter:
		v, ok := vars[n]
		if !ok {
			return reflect.Value{}, qerr.New(qerr.CodeInternal, "",
				"unbound parameter %q", n.Name)
		}
		return v, nil

	case *expr.Field:
		target, err := evalScalar(ctx, n.Target, vars)
		if err != nil {
			return reflect.Value{}, err
		}
		return fieldOf(target, n.Name)

	case *expr.Binary:
		return evalBinary(ctx, n, vars)

	case *expr.Not:
		v, err := evalScalar(ctx, n.Operand, vars)
		if err != nil {
			return reflect.Value{}, err
		}
		if v.Kind() != reflect.Bool {
			return reflect.Value{}, qerr.New(qerr.CodeInternal, "", "negation of non-bool %v", v.Kind())
		}
		return reflect.ValueOf(!v.Bool()), nil

	case *expr.Call:
		// A sequence expression in value position (e.g. DefaultIfEmpty in a
		// flattening selector) materializes to a typed slice.
		s, err := evalSeqCall(ctx, n, vars)
		if err != nil {
			return reflect.Value{}, err
		}
		return makeTypedSlice(s), nil

	default:
		return reflect.Value{}, qerr.New(qerr.CodeInternal, "",
			"expression %T is not a value", e)
	}
}

func evalBinary(ctx context.Context, b *expr.Binary, vars env) (reflect.Value, error) {
	if b.Op == expr.OpAnd || b.Op == expr.OpOr {
		left, err := evalScalar(ctx, b.Left, vars)
		if err != nil {
			return reflect.Value{}, err
		}
		if left.Kind() != reflect.Bool {
			return reflect.Value{}, qerr.New(qerr.CodeInternal, "", "logical operand is %v, want bool", left.Kind())
		}
		// Short-circuit.
		if b.Op == expr.OpAnd && !left.Bool() {
			return reflect.ValueOf(false), nil
		}
		if b.Op == expr.OpOr && left.Bool() {
			return reflect.ValueOf(true), nil
		}
		right, err := evalScalar(ctx, b.Right, vars)
		if err != nil {
			return reflect.Value{}, err
		}
		if right.Kind() != reflect.Bool {
			return reflect.Value{}, qerr.New(qerr.CodeInternal, "", "logical operand is %v, want bool", right.Kind())
		}
		return reflect.ValueOf(right.Bool()), nil
	}

	left, err := evalScalar(ctx, b.Left, vars)
	if err != nil {
		return reflect.Value{}, err
	}
	right, err := evalScalar(ctx, b.Right, vars)
	if err != nil {
		return reflect.Value{}, err
	}
	ok, err := compareOp(b.Op, left, right)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(ok), nil
}

func fieldOf(v reflect.Value, name string) (reflect.Value, error) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, qerr.New(qerr.CodeInternal, "",
				"field %q of nil value", name)
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		f := v.FieldByName(name)
		if !f.IsValid() {
			return reflect.Value{}, qerr.New(qerr.CodeInternal, "",
				"type %s has no field %q", v.Type(), name)
		}
		return f, nil
	case reflect.Map:
		f := v.MapIndex(reflect.ValueOf(name))
		if !f.IsValid() {
			return reflect.Value{}, qerr.New(qerr.CodeInternal, "",
				"row has no key %q", name)
		}
		return f, nil
	default:
		return reflect.Value{}, qerr.New(qerr.CodeInternal, "",
			"field access on %v value", v.Kind())
	}
}

func intArg(ctx context.Context, e expr.Expression, vars env) (int, error) {
	v, err := evalScalar(ctx, e, vars)
	if err != nil {
		return 0, err
	}
	n := normalize(v)
	if n.kind != kindInt {
		return 0, qerr.New(qerr.CodeInternal, "", "count argument is %v, want integer", v.Kind())
	}
	return int(n.i), nil
}

// coerceTo adapts a value to the expected type, converting across numeric
// kinds where Go allows it.
func coerceTo(v reflect.Value, t reflect.Type) reflect.Value {
	if !v.IsValid() {
		return reflect.Zero(t)
	}
	if v.Type() == t || t.Kind() == reflect.Interface && v.Type().Implements(t) {
		return v
	}
	if v.Type().ConvertibleTo(t) {
		return v.Convert(t)
	}
	return v
}

func makeTypedSlice(s *seq) reflect.Value {
	out := reflect.MakeSlice(reflect.SliceOf(s.elem), 0, len(s.elems))
	for _, el := range s.elems {
		out = reflect.Append(out, coerceTo(el, s.elem))
	}
	return out
}
