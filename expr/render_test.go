package expr

import (
	"reflect"
	"testing"

	"github.com/sebdah/goldie/v2"
)

type renderUser struct {
	Age  int
	Name string
}

func TestRender_Golden(t *testing.T) {
	src := &Source{Name: "users", Elem: TypeOf[renderUser]()}
	typeArgs := []reflect.Type{TypeOf[renderUser]()}

	u := NewParam[renderUser]("u")
	pred := Predicate(E(u).Field("Age").Ge(18).And(E(u).Field("Name").Ne("root")), u)

	x := NewParam[renderUser]("x")
	disjunction := Predicate(
		E(TypedConst(false)).Or(E(x).Field("Name").Eq("alice")).Or(E(x).Field("Name").Eq("bob")), x)

	tests := []struct {
		name string
		expr Expression
	}{
		{
			name: "filter_chain",
			expr: NewCall(OpWhere, typeArgs, src, pred),
		},
		{
			name: "window_chain",
			expr: NewCall(OpTake, typeArgs,
				NewCall(OpSkip, typeArgs, src, Const(10)), Const(5)),
		},
		{
			name: "disjunction_filter",
			expr: NewCall(OpWhere, typeArgs, src, disjunction),
		},
		{
			name: "local_count",
			expr: NewCall(OpCount, []reflect.Type{TypeOf[int]()}, Const([]int{1, 2, 3})),
		},
		{
			name: "opaque_closure",
			expr: NewCall(OpWhere, []reflect.Type{TypeOf[int]()},
				Const([]int{1}), FuncOf(func(int) bool { return true })),
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, []byte(Render(tt.expr)+"\n"))
		})
	}
}
