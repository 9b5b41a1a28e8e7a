package evaluate

import (
	"reflect"
	"strings"

	"github.com/roach88/sequent/expr"
	"github.com/roach88/sequent/qerr"
)

// scalar is a comparison-normalized view of a value. Integer kinds collapse
// to int64, floats to float64, so predicates may compare an int32 field
// against an int constant without caring about kind.
type scalar struct {
	kind scalarKind
	i    int64
	f    float64
	s    string
	b    bool
	raw  reflect.Value
}

type scalarKind int

const (
	kindNull scalarKind = iota
	kindInt
	kindFloat
	kindString
	kindBool
	kindOther
)

func normalize(v reflect.Value) scalar {
	if !v.IsValid() {
		return scalar{kind: kindNull}
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return scalar{kind: kindNull}
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalar{kind: kindInt, i: v.Int()}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return scalar{kind: kindInt, i: int64(v.Uint())}
	case reflect.Float32, reflect.Float64:
		return scalar{kind: kindFloat, f: v.Float()}
	case reflect.String:
		return scalar{kind: kindString, s: v.String()}
	case reflect.Bool:
		return scalar{kind: kindBool, b: v.Bool()}
	default:
		return scalar{kind: kindOther, raw: v}
	}
}

// equal reports normalized equality. Nulls equal only each other; mixed
// int/float compares numerically; structurally typed values fall back to
// DeepEqual.
func equal(a, b reflect.Value) bool {
	na, nb := normalize(a), normalize(b)
	if na.kind == kindNull || nb.kind == kindNull {
		return na.kind == kindNull && nb.kind == kindNull
	}
	switch {
	case na.kind == kindInt && nb.kind == kindInt:
		return na.i == nb.i
	case na.kind == kindFloat || nb.kind == kindFloat:
		return asFloat(na) == asFloat(nb)
	case na.kind == kindString && nb.kind == kindString:
		return na.s == nb.s
	case na.kind == kindBool && nb.kind == kindBool:
		return na.b == nb.b
	case na.kind == kindOther && nb.kind == kindOther:
		return reflect.DeepEqual(na.raw.Interface(), nb.raw.Interface())
	default:
		return false
	}
}

// less reports normalized ordering. Only numeric and string values are
// ordered; anything else (including nulls) is an error, mirroring how a
// relational backend would reject the comparison.
func less(a, b reflect.Value) (bool, error) {
	na, nb := normalize(a), normalize(b)
	switch {
	case na.kind == kindInt && nb.kind == kindInt:
		return na.i < nb.i, nil
	case (na.kind == kindInt || na.kind == kindFloat) && (nb.kind == kindInt || nb.kind == kindFloat):
		return asFloat(na) < asFloat(nb), nil
	case na.kind == kindString && nb.kind == kindString:
		return strings.Compare(na.s, nb.s) < 0, nil
	default:
		return false, qerr.New(qerr.CodeInvalidArgument, "",
			"values of kinds %v and %v are not ordered", a.Kind(), b.Kind())
	}
}

func asFloat(s scalar) float64 {
	if s.kind == kindInt {
		return float64(s.i)
	}
	return s.f
}

// compareOp applies a binary comparison operator under the normalization
// rules above.
func compareOp(op expr.BinaryOp, a, b reflect.Value) (bool, error) {
	switch op {
	case expr.OpEq:
		return equal(a, b), nil
	case expr.OpNe:
		return !equal(a, b), nil
	case expr.OpLt:
		return less(a, b)
	case expr.OpGt:
		return less(b, a)
	case expr.OpLe:
		gt, err := less(b, a)
		return !gt, err
	case expr.OpGe:
		lt, err := less(a, b)
		return !lt, err
	default:
		return false, qerr.New(qerr.CodeInternal, "", "operator %v is not a comparison", op)
	}
}
