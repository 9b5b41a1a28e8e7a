package sequent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sequent/expr"
	"github.com/roach88/sequent/qerr"
)

type parent struct {
	ID   int
	Name string
}

type child struct {
	ParentID int
	Name     string
}

type pairing struct {
	Parent string
	Child  string
}

func parentKey() *expr.Lambda { return expr.FieldSelector[parent]("ID") }
func childKey() *expr.Lambda   { return expr.FieldSelector[child]("ParentID") }

func pairSelector() *expr.Lambda {
	l := expr.NewParam[parent]("l")
	r := expr.NewParam[child]("r")
	return &expr.Lambda{
		Params: []*expr.Parameter{l, r},
		Body:   expr.FuncOf(func(p parent, c child) pairing { return pairing{Parent: p.Name, Child: c.Name} }),
	}
}

var (
	parents = []parent{
		{ID: 1, Name: "Foo"},
		{ID: 2, Name: "Loner"},
	}
	children = []child{
		{ParentID: 1, Name: "Fizz"},
		{ParentID: 1, Name: "Buzz"},
		{ParentID: 3, Name: "Orphan"},
	}
)

func TestLeftJoin_EveryLeftAppears(t *testing.T) {
	q, err := LeftJoin[parent, child, int, pairing](
		From(parents), From(children), parentKey(), childKey(), pairSelector())
	require.NoError(t, err)

	got, err := ToSliceAsync(context.Background(), q)
	require.NoError(t, err)

	// Foo pairs with each match; Loner appears once with the zero child.
	assert.Equal(t, []pairing{
		{Parent: "Foo", Child: "Fizz"},
		{Parent: "Foo", Child: "Buzz"},
		{Parent: "Loner", Child: ""},
	}, got)
}

func TestLeftJoin_EmptyRightKeepsAllLefts(t *testing.T) {
	q, err := LeftJoin[parent, child, int, pairing](
		From(parents), From([]child{}), parentKey(), childKey(), pairSelector())
	require.NoError(t, err)

	got, err := ToSliceAsync(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []pairing{
		{Parent: "Foo", Child: ""},
		{Parent: "Loner", Child: ""},
	}, got)
}

func TestLeftJoin_EmptyLeftIsEmpty(t *testing.T) {
	q, err := LeftJoin[parent, child, int, pairing](
		From([]parent{}), From(children), parentKey(), childKey(), pairSelector())
	require.NoError(t, err)

	got, err := ToSliceAsync(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// A quoted result selector is rewritten onto the internal composite; the
// rewrite must leave the original lambda untouched.
func TestLeftJoin_QuotedSelectorSubstitution(t *testing.T) {
	l := expr.NewParam[parent]("l")
	r := expr.NewParam[child]("r")
	sel := &expr.Lambda{
		Params: []*expr.Parameter{l, r},
		Body:   &expr.Field{Target: l, Name: "Name"},
	}
	before := expr.Render(sel)

	q, err := LeftJoin[parent, child, int, string](
		From(parents), From(children), parentKey(), childKey(), sel)
	require.NoError(t, err)
	assert.Equal(t, before, expr.Render(sel))

	got, err := ToSliceAsync(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo", "Foo", "Loner"}, got)
}

func TestLeftJoin_ArgumentValidation(t *testing.T) {
	lq := From(parents)
	rq := From(children)

	_, err := LeftJoin[parent, child, int, pairing](lq, nil, parentKey(), childKey(), pairSelector())
	assert.True(t, qerr.IsInvalidArgument(err))

	_, err = LeftJoin[parent, child, int, pairing](lq, rq, nil, childKey(), pairSelector())
	assert.True(t, qerr.IsInvalidArgument(err))

	_, err = LeftJoin[parent, child, int, pairing](lq, rq, parentKey(), nil, pairSelector())
	assert.True(t, qerr.IsInvalidArgument(err))

	_, err = LeftJoin[parent, child, int, pairing](lq, rq, parentKey(), childKey(), nil)
	assert.True(t, qerr.IsInvalidArgument(err))

	one := &expr.Lambda{Params: []*expr.Parameter{expr.NewParam[parent]("p")}, Body: expr.TypedConst(true)}
	_, err = LeftJoin[parent, child, int, pairing](lq, rq, parentKey(), childKey(), one)
	assert.True(t, qerr.IsInvalidArgument(err))
}

// The composite shape never leaks: the result element type is the caller's.
func TestLeftJoin_ResultShape(t *testing.T) {
	q, err := LeftJoin[parent, child, int, pairing](
		From(parents), From(children), parentKey(), childKey(), pairSelector())
	require.NoError(t, err)

	call := q.Expression().(*expr.Call)
	assert.Equal(t, expr.OpSelectMany, call.Op)
	assert.Equal(t, expr.TypeOf[pairing](), call.TypeArgs[2])
}
