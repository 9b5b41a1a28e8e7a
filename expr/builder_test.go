package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_ComparisonShapes(t *testing.T) {
	type user struct {
		Age  int
		Name string
	}
	u := NewParam[user]("u")

	body := E(u).Field("Age").Ge(18).And(E(u).Field("Name").Ne("root"))
	bin, ok := body.Expr().(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpAnd, bin.Op)

	left := bin.Left.(*Binary)
	assert.Equal(t, OpGe, left.Op)
	assert.Equal(t, "Age", left.Left.(*Field).Name)
	assert.Equal(t, 18, left.Right.(*Constant).Value)

	right := bin.Right.(*Binary)
	assert.Equal(t, OpNe, right.Op)
	assert.Equal(t, "root", right.Right.(*Constant).Value)
}

func TestBuilder_AcceptsNodesAndExpressions(t *testing.T) {
	x := NewParam[int]("x")

	// Raw expression on the right-hand side passes through unwrapped.
	b := E(x).Lt(Const(5)).Expr().(*Binary)
	assert.Equal(t, 5, b.Right.(*Constant).Value)

	// A Node unwraps to its expression.
	b = E(x).Eq(E(x)).Expr().(*Binary)
	assert.Same(t, x, b.Right)
}

func TestBuilder_Not(t *testing.T) {
	x := NewParam[bool]("x")
	n, ok := E(x).Not().Expr().(*Not)
	require.True(t, ok)
	assert.Same(t, x, n.Operand)
}

func TestPredicate_BindsParams(t *testing.T) {
	x := NewParam[int]("x")
	lam := Predicate(E(x).Gt(0), x)
	require.Len(t, lam.Params, 1)
	assert.Same(t, x, lam.Params[0])

	require.Panics(t, func() { Predicate(E(x).Gt(0)) })
}

func TestFieldSelector(t *testing.T) {
	type row struct{ Score int }
	lam := FieldSelector[row]("Score")
	require.Len(t, lam.Params, 1)
	f := lam.Body.(*Field)
	assert.Same(t, lam.Params[0], f.Target)
	assert.Equal(t, "Score", f.Name)
}

func TestConst_TypedNilDistinction(t *testing.T) {
	c := Const("hi")
	assert.Equal(t, TypeOf[string](), c.Of)

	// Const of nil loses the static type; TypedConst keeps it.
	n := TypedConst[*int](nil)
	assert.Equal(t, TypeOf[*int](), n.Of)
	assert.Nil(t, n.Value)
}

func TestE_PanicsOnNil(t *testing.T) {
	require.Panics(t, func() { E(nil) })
}
