package evaluate

import (
	"context"
	"reflect"

	"github.com/roach88/sequent/expr"
	"github.com/roach88/sequent/qerr"
)

// anyEqualer is the untyped face of a caller-supplied equality comparer.
// The root package adapts its generic comparer onto this shape before
// embedding it in a call expression.
type anyEqualer interface {
	EqualAny(a, b any) bool
}

// Execute evaluates a call expression against in-memory data and returns
// the operation's result. It is the synchronous execution entry point used
// by the local provider.
func Execute(ctx context.Context, e expr.Expression) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := e.(*expr.Call)
	if !ok {
		// A bare sequence expression materializes like ToSlice.
		s, err := evalSeq(ctx, e, nil)
		if err != nil {
			return nil, err
		}
		return makeTypedSlice(s).Interface(), nil
	}
	return evalCall(ctx, c)
}

func evalCall(ctx context.Context, c *expr.Call) (any, error) {
	switch c.Op {
	case expr.OpWhere, expr.OpSelect, expr.OpSkip, expr.OpTake,
		expr.OpGroupJoin, expr.OpSelectMany, expr.OpDefaultIfEmpty:
		s, err := evalSeqCall(ctx, c, nil)
		if err != nil {
			return nil, err
		}
		return makeTypedSlice(s).Interface(), nil

	case expr.OpToSlice:
		s, err := evalSeq(ctx, c.Args[0], nil)
		if err != nil {
			return nil, err
		}
		return makeTypedSlice(s).Interface(), nil

	case expr.OpCount, expr.OpLongCount:
		src, err := sourceFiltered(ctx, c, 1)
		if err != nil {
			return nil, err
		}
		if c.Op == expr.OpLongCount {
			return int64(len(src.elems)), nil
		}
		return len(src.elems), nil

	case expr.OpSum:
		return evalSum(ctx, c)
	case expr.OpAverage:
		return evalAverage(ctx, c)
	case expr.OpMin:
		return evalMinMax(ctx, c, true)
	case expr.OpMax:
		return evalMinMax(ctx, c, false)
	case expr.OpAggregate:
		return evalAggregate(ctx, c)

	case expr.OpAny:
		src, err := sourceFiltered(ctx, c, 1)
		if err != nil {
			return nil, err
		}
		return len(src.elems) > 0, nil

	case expr.OpAll:
		src, err := evalSeq(ctx, c.Args[0], nil)
		if err != nil {
			return nil, err
		}
		for _, el := range src.elems {
			ok, err := applyBool(ctx, c.Args[1], nil, el)
			if err != nil {
				return nil, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case expr.OpSingle, expr.OpSingleOrDefault,
		expr.OpFirst, expr.OpFirstOrDefault,
		expr.OpLast, expr.OpLastOrDefault:
		return evalPick(ctx, c)

	case expr.OpElementAt, expr.OpElementAtOrDefault:
		return evalElementAt(ctx, c)

	case expr.OpContains:
		return evalContains(ctx, c)

	case expr.OpSequenceEqual:
		return evalSequenceEqual(ctx, c)

	default:
		return nil, qerr.New(qerr.CodeInternal, c.Op.String(), "operation not supported by the in-process evaluator")
	}
}

// sourceFiltered evaluates the call's source, applying the optional
// trailing predicate at argument position predPos.
func sourceFiltered(ctx context.Context, c *expr.Call, predPos int) (*seq, error) {
	src, err := evalSeq(ctx, c.Args[0], nil)
	if err != nil {
		return nil, err
	}
	if len(c.Args) <= predPos {
		return src, nil
	}
	return filterSeq(ctx, src, c.Args[predPos], nil)
}

// numericValues extracts the numeric values an aggregate operates over:
// the elements themselves, or the projection through an optional selector.
// Returns the values alongside their static type.
func numericValues(ctx context.Context, c *expr.Call) ([]reflect.Value, reflect.Type, error) {
	src, err := evalSeq(ctx, c.Args[0], nil)
	if err != nil {
		return nil, nil, err
	}
	vt := c.TypeArgs[0]
	if len(c.TypeArgs) == 2 {
		vt = c.TypeArgs[1]
	}
	if len(c.Args) == 1 {
		return src.elems, vt, nil
	}
	vals := make([]reflect.Value, 0, len(src.elems))
	for _, el := range src.elems {
		v, err := apply(ctx, c.Args[1], nil, el)
		if err != nil {
			return nil, nil, err
		}
		vals = append(vals, v)
	}
	return vals, vt, nil
}

func evalSum(ctx context.Context, c *expr.Call) (any, error) {
	vals, vt, err := numericValues(ctx, c)
	if err != nil {
		return nil, err
	}
	nullable := vt.Kind() == reflect.Pointer
	base := vt
	if nullable {
		base = vt.Elem()
	}

	// Absent values are skipped; an empty sequence sums to zero. Both hold
	// on the provider paths as well.
	var sumI int64
	var sumF float64
	float := base.Kind() == reflect.Float32 || base.Kind() == reflect.Float64
	for _, v := range vals {
		n := normalize(v)
		if n.kind == kindNull {
			continue
		}
		switch n.kind {
		case kindInt:
			sumI += n.i
			sumF += float64(n.i)
		case kindFloat:
			sumF += n.f
		default:
			return nil, qerr.New(qerr.CodeInvalidArgument, "Sum", "non-numeric value of kind %v", v.Kind())
		}
	}
	var result reflect.Value
	if float {
		result = reflect.ValueOf(sumF).Convert(base)
	} else {
		result = reflect.ValueOf(sumI).Convert(base)
	}
	if nullable {
		p := reflect.New(base)
		p.Elem().Set(result)
		return p.Interface(), nil
	}
	return result.Interface(), nil
}

func evalAverage(ctx context.Context, c *expr.Call) (any, error) {
	vals, vt, err := numericValues(ctx, c)
	if err != nil {
		return nil, err
	}
	nullable := vt.Kind() == reflect.Pointer

	var sum float64
	var count int
	for _, v := range vals {
		n := normalize(v)
		if n.kind == kindNull {
			continue
		}
		switch n.kind {
		case kindInt:
			sum += float64(n.i)
		case kindFloat:
			sum += n.f
		default:
			return nil, qerr.New(qerr.CodeInvalidArgument, "Average", "non-numeric value of kind %v", v.Kind())
		}
		count++
	}
	if count == 0 {
		if nullable {
			// Averaging only absent values yields an absent average.
			return (*float64)(nil), nil
		}
		return nil, qerr.New(qerr.CodeNoElements, "Average", "sequence contains no elements")
	}
	avg := sum / float64(count)
	if nullable {
		return &avg, nil
	}
	return avg, nil
}

func evalMinMax(ctx context.Context, c *expr.Call, min bool) (any, error) {
	op := "Max"
	if min {
		op = "Min"
	}
	vals, vt, err := numericValues(ctx, c)
	if err != nil {
		return nil, err
	}
	nullable := vt.Kind() == reflect.Pointer
	base := vt
	if nullable {
		base = vt.Elem()
	}

	var best reflect.Value
	for _, v := range vals {
		if normalize(v).kind == kindNull {
			continue
		}
		if !best.IsValid() {
			best = v
			continue
		}
		lt, err := less(v, best)
		if err != nil {
			return nil, err
		}
		if lt == min {
			best = v
		}
	}
	if !best.IsValid() {
		if nullable {
			return reflect.Zero(vt).Interface(), nil
		}
		return nil, qerr.New(qerr.CodeNoElements, op, "sequence contains no elements")
	}
	if nullable {
		p := reflect.New(base)
		p.Elem().Set(coerceTo(reflect.Indirect(best), base))
		return p.Interface(), nil
	}
	return coerceTo(best, base).Interface(), nil
}

func evalAggregate(ctx context.Context, c *expr.Call) (any, error) {
	src, err := evalSeq(ctx, c.Args[0], nil)
	if err != nil {
		return nil, err
	}
	switch len(c.Args) {
	case 2: // (source, fn): no seed, first element seeds the fold
		if len(src.elems) == 0 {
			return nil, qerr.New(qerr.CodeNoElements, "Aggregate", "sequence contains no elements")
		}
		acc := src.elems[0]
		for _, el := range src.elems[1:] {
			acc, err = apply(ctx, c.Args[1], nil, acc, el)
			if err != nil {
				return nil, err
			}
		}
		return acc.Interface(), nil

	case 3, 4: // (source, seed, fn [, resultSelector])
		acc, err := evalScalar(ctx, c.Args[1], nil)
		if err != nil {
			return nil, err
		}
		for _, el := range src.elems {
			acc, err = apply(ctx, c.Args[2], nil, acc, el)
			if err != nil {
				return nil, err
			}
		}
		if len(c.Args) == 4 {
			acc, err = apply(ctx, c.Args[3], nil, acc)
			if err != nil {
				return nil, err
			}
		}
		return acc.Interface(), nil

	default:
		return nil, qerr.New(qerr.CodeInternal, "Aggregate", "unexpected argument count %d", len(c.Args))
	}
}

func evalPick(ctx context.Context, c *expr.Call) (any, error) {
	src, err := sourceFiltered(ctx, c, 1)
	if err != nil {
		return nil, err
	}
	filtered := len(c.Args) > 1
	op := c.Op.String()
	orDefault := c.Op == expr.OpSingleOrDefault || c.Op == expr.OpFirstOrDefault || c.Op == expr.OpLastOrDefault

	if len(src.elems) == 0 {
		if orDefault {
			return reflect.Zero(c.TypeArgs[0]).Interface(), nil
		}
		if filtered {
			return nil, qerr.New(qerr.CodeNoElements, op, "sequence contains no matching element")
		}
		return nil, qerr.New(qerr.CodeNoElements, op, "sequence contains no elements")
	}

	switch c.Op {
	case expr.OpSingle, expr.OpSingleOrDefault:
		if len(src.elems) > 1 {
			return nil, qerr.New(qerr.CodeMultipleElements, op, "sequence contains more than one element")
		}
		return src.elems[0].Interface(), nil
	case expr.OpFirst, expr.OpFirstOrDefault:
		return src.elems[0].Interface(), nil
	default: // Last, LastOrDefault
		return src.elems[len(src.elems)-1].Interface(), nil
	}
}

func evalElementAt(ctx context.Context, c *expr.Call) (any, error) {
	src, err := evalSeq(ctx, c.Args[0], nil)
	if err != nil {
		return nil, err
	}
	idx, err := intArg(ctx, c.Args[1], nil)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(src.elems) {
		if c.Op == expr.OpElementAtOrDefault {
			return reflect.Zero(c.TypeArgs[0]).Interface(), nil
		}
		return nil, qerr.New(qerr.CodeIndexOutOfRange, "ElementAt",
			"index %d out of range for sequence of %d elements", idx, len(src.elems))
	}
	return src.elems[idx].Interface(), nil
}

// comparerArg extracts the optional trailing equality comparer.
func comparerArg(c *expr.Call, pos int) (anyEqualer, error) {
	if len(c.Args) <= pos {
		return nil, nil
	}
	k, ok := c.Args[pos].(*expr.Constant)
	if !ok {
		return nil, qerr.New(qerr.CodeInternal, c.Op.String(), "comparer argument is not a constant")
	}
	eq, ok := k.Value.(anyEqualer)
	if !ok {
		return nil, qerr.New(qerr.CodeInternal, c.Op.String(), "comparer %T does not implement EqualAny", k.Value)
	}
	return eq, nil
}

func evalContains(ctx context.Context, c *expr.Call) (any, error) {
	src, err := evalSeq(ctx, c.Args[0], nil)
	if err != nil {
		return nil, err
	}
	needle, err := evalScalar(ctx, c.Args[1], nil)
	if err != nil {
		return nil, err
	}
	eq, err := comparerArg(c, 2)
	if err != nil {
		return nil, err
	}
	for _, el := range src.elems {
		if elementsEqual(el, needle, eq) {
			return true, nil
		}
	}
	return false, nil
}

func evalSequenceEqual(ctx context.Context, c *expr.Call) (any, error) {
	src, err := evalSeq(ctx, c.Args[0], nil)
	if err != nil {
		return nil, err
	}
	other, err := evalSeq(ctx, c.Args[1], nil)
	if err != nil {
		return nil, err
	}
	eq, err := comparerArg(c, 2)
	if err != nil {
		return nil, err
	}
	if len(src.elems) != len(other.elems) {
		return false, nil
	}
	for i := range src.elems {
		if !elementsEqual(src.elems[i], other.elems[i], eq) {
			return false, nil
		}
	}
	return true, nil
}

func elementsEqual(a, b reflect.Value, eq anyEqualer) bool {
	if eq != nil {
		return eq.EqualAny(a.Interface(), b.Interface())
	}
	return equal(a, b)
}
