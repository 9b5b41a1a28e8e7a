package expr

import (
	"fmt"
	"reflect"
)

// Node is a fluent wrapper over an Expression used to build predicate and
// selector bodies. Methods accept either another Node, a raw Expression, or
// a plain Go value (wrapped as a Constant).
//
// Example:
//
//	u := expr.NewParam[User]("u")
//	body := expr.E(u).Field("Age").Ge(18).And(expr.E(u).Field("Active").Eq(true))
//	pred := expr.Predicate(body, u)
type Node struct {
	e Expression
}

// E wraps an expression for fluent composition.
func E(e Expression) Node {
	if e == nil {
		panic("expr: E called with nil expression")
	}
	return Node{e: e}
}

// Expr unwraps the built expression.
func (n Node) Expr() Expression { return n.e }

// Field accesses a member of the wrapped value.
func (n Node) Field(name string) Node {
	return Node{e: &Field{Target: n.e, Name: name}}
}

// Eq builds n == v.
func (n Node) Eq(v any) Node { return n.binary(OpEq, v) }

// Ne builds n != v.
func (n Node) Ne(v any) Node { return n.binary(OpNe, v) }

// Lt builds n < v.
func (n Node) Lt(v any) Node { return n.binary(OpLt, v) }

// Le builds n <= v.
func (n Node) Le(v any) Node { return n.binary(OpLe, v) }

// Gt builds n > v.
func (n Node) Gt(v any) Node { return n.binary(OpGt, v) }

// Ge builds n >= v.
func (n Node) Ge(v any) Node { return n.binary(OpGe, v) }

// And builds n && v.
func (n Node) And(v any) Node { return n.binary(OpAnd, v) }

// Or builds n || v.
func (n Node) Or(v any) Node { return n.binary(OpOr, v) }

// Not builds !n.
func (n Node) Not() Node { return Node{e: &Not{Operand: n.e}} }

func (n Node) binary(op BinaryOp, v any) Node {
	return Node{e: &Binary{Op: op, Left: n.e, Right: asExpression(v)}}
}

// asExpression coerces a builder argument into an Expression. Nodes and
// Expressions pass through; anything else becomes a Constant.
func asExpression(v any) Expression {
	switch x := v.(type) {
	case Node:
		return x.e
	case Expression:
		return x
	default:
		return Const(v)
	}
}

// Const wraps a literal value as a Constant node, recording its static
// type. A nil value yields an untyped nil constant; use TypedNil when the
// static type matters.
func Const(v any) *Constant {
	return &Constant{Value: v, Of: reflect.TypeOf(v)}
}

// TypedConst wraps v as a Constant with the explicit static type T. Use it
// when v is nil, or an interface value whose static type is wider than its
// dynamic one.
func TypedConst[T any](v T) *Constant {
	return &Constant{Value: v, Of: TypeOf[T]()}
}

// Predicate builds a quoted predicate lambda from a boolean-valued body and
// its bound parameters.
func Predicate(body Node, params ...*Parameter) *Lambda {
	if len(params) == 0 {
		panic("expr: Predicate requires at least one parameter")
	}
	return &Lambda{Params: params, Body: body.e}
}

// Selector builds a quoted selector lambda. It is the same shape as
// Predicate but named for call sites that project rather than filter.
func Selector(body Node, params ...*Parameter) *Lambda {
	if len(params) == 0 {
		panic("expr: Selector requires at least one parameter")
	}
	return &Lambda{Params: params, Body: body.e}
}

// FieldSelector builds the common single-field projection x => x.Name.
func FieldSelector[T any](name string) *Lambda {
	p := NewParam[T]("x")
	return &Lambda{Params: []*Parameter{p}, Body: &Field{Target: p, Name: name}}
}

// FuncOf wraps a Go closure as a Func node, validating that fn is actually
// a func value. Closures are interpretable only by the in-process
// evaluator; a translating provider will reject the tree that contains one.
func FuncOf(fn any) *Func {
	if fn == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
		panic(fmt.Sprintf("expr: FuncOf requires a func value, got %T", fn))
	}
	return &Func{Fn: fn}
}
