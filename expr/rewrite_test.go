package expr

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// typeCmp compares reflect.Type values by identity so cmp does not descend
// into runtime internals.
var typeCmp = cmp.Comparer(func(a, b reflect.Type) bool { return a == b })

func TestSubstitute_ReplacesByPointerIdentity(t *testing.T) {
	x := NewParam[int]("x")
	other := NewParam[int]("x") // same name, different variable

	body := &Binary{Op: OpLt, Left: x, Right: Const(10)}
	out := Substitute(body, map[*Parameter]Expression{x: Const(3)})

	want := &Binary{Op: OpLt, Left: Const(3), Right: Const(10)}
	if diff := cmp.Diff(want, out, typeCmp); diff != "" {
		t.Fatalf("substituted tree mismatch (-want +got):\n%s", diff)
	}

	// A distinct parameter with the same name is untouched.
	out = Substitute(body, map[*Parameter]Expression{other: Const(3)})
	require.IsType(t, &Binary{}, out)
	assert.Same(t, x, out.(*Binary).Left)
}

func TestSubstitute_DoesNotMutateInput(t *testing.T) {
	u := NewParam[int]("u")
	body := &Binary{Op: OpEq, Left: &Field{Target: u, Name: "ID"}, Right: Const(1)}

	out := Substitute(body, map[*Parameter]Expression{u: Const(42)})

	require.NotSame(t, body, out)
	assert.Same(t, u, body.Left.(*Field).Target, "input tree mutated")
}

func TestSubstitute_SharesUntouchedSubtrees(t *testing.T) {
	x := NewParam[int]("x")
	left := &Binary{Op: OpGt, Left: Const(1), Right: Const(0)} // no parameter inside
	body := &Binary{Op: OpAnd, Left: left, Right: x}

	out := Substitute(body, map[*Parameter]Expression{x: Const(2)})

	assert.Same(t, left, out.(*Binary).Left, "untouched subtree reallocated")
}

func TestSubstitute_EmptyMapReturnsInput(t *testing.T) {
	x := NewParam[int]("x")
	assert.Same(t, Expression(x), Substitute(x, nil))
}

func TestRewrite_RebuildsInsideLambdaAndCall(t *testing.T) {
	x := NewParam[string]("x")
	lam := &Lambda{Params: []*Parameter{x}, Body: &Field{Target: x, Name: "Name"}}
	src := Const([]string{})
	where := NewCall(OpWhere, []reflect.Type{TypeOf[string]()}, src, lam)

	out := Rewrite(where, func(n Expression) Expression {
		if f, ok := n.(*Field); ok {
			return &Field{Target: f.Target, Name: "Renamed"}
		}
		return n
	})

	got := out.(*Call).Args[1].(*Lambda).Body.(*Field)
	assert.Equal(t, "Renamed", got.Name)
	// Original lambda body untouched.
	assert.Equal(t, "Name", lam.Body.(*Field).Name)
}

func TestFreeParams_SkipsBoundParameters(t *testing.T) {
	outer := NewParam[int]("outer")
	inner := NewParam[int]("inner")
	lam := &Lambda{
		Params: []*Parameter{inner},
		Body:   &Binary{Op: OpEq, Left: inner, Right: outer},
	}

	free := FreeParams(lam)
	require.Len(t, free, 1)
	assert.Same(t, outer, free[0])
}

func TestResultType(t *testing.T) {
	type row struct{ Age int }
	r := NewParam[row]("r")

	assert.Equal(t, TypeOf[int](), ResultType(&Field{Target: r, Name: "Age"}))
	assert.Equal(t, TypeOf[bool](), ResultType(&Binary{Op: OpLt, Left: r, Right: Const(1)}))
	assert.Nil(t, ResultType(&Field{Target: r, Name: "Missing"}))
	assert.Nil(t, ResultType(FuncOf(func(int) bool { return true })))
}
