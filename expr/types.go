package expr

import "reflect"

// Expression represents a node in a query expression tree.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in provider compilers.
//
// Node types:
//   - Source: a named provider-side root (e.g. a table)
//   - Constant: a literal value, including a wrapped in-memory sequence
//   - Parameter: a lambda-bound variable (identity is the pointer)
//   - Field: member access on a struct- or map-shaped value
//   - Binary: comparison or logical combination of two subtrees
//   - Not: logical negation
//   - Lambda: a quoted predicate/selector with bound parameters
//   - Func: an opaque Go closure (interpretable locally, never translatable)
//   - Call: "invoke operation Op with type arguments against arguments"
type Expression interface {
	exprNode() // Marker method - seals interface to this package
}

// Source represents a provider-side root sequence, such as a table in a
// relational backend. Elem is the element type rows scan into.
//
// A Source is only meaningful to the provider that issued it; the local
// evaluator rejects it.
type Source struct {
	Name string       // Backend name (e.g. "users")
	Elem reflect.Type // Element type of the sequence
}

func (*Source) exprNode() {}

// Constant represents a literal value embedded in a tree.
//
// The in-process path also uses Constant as the root of a local queryable,
// with Value holding the backing slice. Of records the static type, which
// may be more precise than reflect.TypeOf(Value) when Value is nil (e.g. a
// typed nil pointer standing in for an absent nullable).
type Constant struct {
	Value any
	Of    reflect.Type
}

func (*Constant) exprNode() {}

// Parameter represents a variable bound by an enclosing Lambda.
//
// Parameter identity is pointer identity: two parameters with the same name
// and type are still distinct variables. Substitution maps are keyed on the
// pointer for exactly this reason.
type Parameter struct {
	Name string
	Of   reflect.Type
}

func (*Parameter) exprNode() {}

// Field represents member access: Target.Name.
//
// Locally this resolves against exported struct fields (or map keys for
// map-shaped rows); providers resolve it against backend columns.
type Field struct {
	Target Expression
	Name   string
}

func (*Field) exprNode() {}

// BinaryOp enumerates the binary operators usable inside predicates.
type BinaryOp int

const (
	OpAnd BinaryOp = iota + 1
	OpOr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// String returns the operator's rendered form.
func (op BinaryOp) String() string {
	switch op {
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// Binary represents Left <op> Right.
type Binary struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
}

func (*Binary) exprNode() {}

// Not represents logical negation of a boolean subtree.
type Not struct {
	Operand Expression
}

func (*Not) exprNode() {}

// Lambda represents a quoted function: Params => Body.
//
// Predicates are single-parameter lambdas with a boolean body; selectors
// return the projected value; join result selectors take two parameters.
type Lambda struct {
	Params []*Parameter
	Body   Expression
}

func (*Lambda) exprNode() {}

// Func wraps an opaque Go closure as an expression argument.
//
// Fn must be a func value. The local evaluator invokes it via reflection;
// providers that translate trees to a remote query language report it as
// untranslatable. This is the escape hatch for logic that has no tree form
// (aggregate folds, arbitrary projections).
type Func struct {
	Fn any
}

func (*Func) exprNode() {}

// Call represents "invoke operation Op with generic type arguments TypeArgs
// against arguments Args". The first argument is always the source
// expression the operation applies to (both sources, for joins, come
// first). Remaining arguments are constants or quoted lambdas.
//
// Construct calls through NewCall, which validates arity against the
// operation registry. A Call that bypasses NewCall carries no guarantees.
type Call struct {
	Op       Op
	TypeArgs []reflect.Type
	Args     []Expression
}

func (*Call) exprNode() {}

// TypeOf returns the reflect.Type for T without requiring a value of T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// NewParam allocates a fresh lambda parameter of type T.
func NewParam[T any](name string) *Parameter {
	return &Parameter{Name: name, Of: TypeOf[T]()}
}
