package expr

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCall_ValidShapes(t *testing.T) {
	src := Const([]int{1, 2, 3})
	x := NewParam[int]("x")
	pred := &Lambda{Params: []*Parameter{x}, Body: &Binary{Op: OpGt, Left: x, Right: Const(1)}}

	tests := []struct {
		name string
		call func() *Call
	}{
		{"where", func() *Call {
			return NewCall(OpWhere, []reflect.Type{TypeOf[int]()}, src, pred)
		}},
		{"count without predicate", func() *Call {
			return NewCall(OpCount, []reflect.Type{TypeOf[int]()}, src)
		}},
		{"count with predicate", func() *Call {
			return NewCall(OpCount, []reflect.Type{TypeOf[int]()}, src, pred)
		}},
		{"sum with selector type", func() *Call {
			return NewCall(OpSum, []reflect.Type{TypeOf[int](), TypeOf[int]()}, src, pred)
		}},
		{"aggregate seeded", func() *Call {
			fn := FuncOf(func(a, b int) int { return a + b })
			return NewCall(OpAggregate, []reflect.Type{TypeOf[int]()}, src, Const(0), fn)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() { tt.call() })
		})
	}
}

func TestNewCall_PanicsOnBadShape(t *testing.T) {
	src := Const([]int{})

	tests := []struct {
		name string
		call func()
	}{
		{"unknown op", func() { NewCall(Op(999), nil) }},
		{"too few args", func() { NewCall(OpWhere, []reflect.Type{TypeOf[int]()}, src) }},
		{"too many args", func() {
			NewCall(OpToSlice, []reflect.Type{TypeOf[int]()}, src, src)
		}},
		{"wrong type arity", func() { NewCall(OpSelect, []reflect.Type{TypeOf[int]()}, src, src) }},
		{"nil argument", func() { NewCall(OpSkip, []reflect.Type{TypeOf[int]()}, src, nil) }},
		{"nil type argument", func() { NewCall(OpToSlice, []reflect.Type{nil}, src) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Panics(t, tt.call)
		})
	}
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "Where", OpWhere.String())
	assert.Equal(t, "SequenceEqual", OpSequenceEqual.String())
	assert.Equal(t, "Op(999)", Op(999).String())
}

func TestBinaryOp_String(t *testing.T) {
	assert.Equal(t, "&&", OpAnd.String())
	assert.Equal(t, ">=", OpGe.String())
}

func TestFuncOf_RequiresFunc(t *testing.T) {
	require.Panics(t, func() { FuncOf(42) })
	require.Panics(t, func() { FuncOf(nil) })
	assert.NotPanics(t, func() { FuncOf(func() {}) })
}
