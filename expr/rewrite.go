package expr

import "reflect"

// Rewrite walks e bottom-up, rebuilding each node whose children changed,
// and finally applies fn to the (possibly rebuilt) node. fn may return its
// argument unchanged to leave the node as-is.
//
// Rewrite never mutates the input tree: untouched subtrees are shared
// between input and output, changed ones are fresh allocations. That makes
// it safe to rewrite a lambda that is still referenced by another query.
func Rewrite(e Expression, fn func(Expression) Expression) Expression {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *Source, *Constant, *Parameter, *Func:
		return fn(e)
	case *Field:
		target := Rewrite(n.Target, fn)
		if target != n.Target {
			return fn(&Field{Target: target, Name: n.Name})
		}
		return fn(n)
	case *Binary:
		left := Rewrite(n.Left, fn)
		right := Rewrite(n.Right, fn)
		if left != n.Left || right != n.Right {
			return fn(&Binary{Op: n.Op, Left: left, Right: right})
		}
		return fn(n)
	case *Not:
		operand := Rewrite(n.Operand, fn)
		if operand != n.Operand {
			return fn(&Not{Operand: operand})
		}
		return fn(n)
	case *Lambda:
		body := Rewrite(n.Body, fn)
		if body != n.Body {
			return fn(&Lambda{Params: n.Params, Body: body})
		}
		return fn(n)
	case *Call:
		var changed bool
		args := n.Args
		for i, a := range n.Args {
			rewritten := Rewrite(a, fn)
			if rewritten != a {
				if !changed {
					args = make([]Expression, len(n.Args))
					copy(args, n.Args)
					changed = true
				}
				args[i] = rewritten
			}
		}
		if changed {
			return fn(&Call{Op: n.Op, TypeArgs: n.TypeArgs, Args: args})
		}
		return fn(n)
	default:
		return fn(e)
	}
}

// Substitute returns a copy of e with every occurrence of each parameter in
// subs replaced by its mapped expression. Parameters are matched by pointer
// identity; parameters not present in subs are left untouched.
//
// The input tree is never mutated, so the same predicate can be substituted
// into several combined expressions without interference.
func Substitute(e Expression, subs map[*Parameter]Expression) Expression {
	if len(subs) == 0 {
		return e
	}
	return Rewrite(e, func(node Expression) Expression {
		if p, ok := node.(*Parameter); ok {
			if repl, ok := subs[p]; ok {
				return repl
			}
		}
		return node
	})
}

// FreeParams reports the parameters referenced by e that are not bound by
// any lambda inside e, in first-occurrence order.
func FreeParams(e Expression) []*Parameter {
	var order []*Parameter
	seen := map[*Parameter]bool{}
	bound := map[*Parameter]int{}

	var walk func(Expression)
	walk = func(node Expression) {
		switch n := node.(type) {
		case nil:
		case *Parameter:
			if bound[n] == 0 && !seen[n] {
				seen[n] = true
				order = append(order, n)
			}
		case *Field:
			walk(n.Target)
		case *Binary:
			walk(n.Left)
			walk(n.Right)
		case *Not:
			walk(n.Operand)
		case *Lambda:
			for _, p := range n.Params {
				bound[p]++
			}
			walk(n.Body)
			for _, p := range n.Params {
				bound[p]--
			}
		case *Call:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return order
}

// ResultType reports the static result type of an expression, or nil when
// it cannot be determined without evaluation (e.g. an opaque Func).
func ResultType(e Expression) reflect.Type {
	switch n := e.(type) {
	case *Source:
		return n.Elem
	case *Constant:
		if n.Of != nil {
			return n.Of
		}
		return reflect.TypeOf(n.Value)
	case *Parameter:
		return n.Of
	case *Field:
		target := ResultType(n.Target)
		if target == nil {
			return nil
		}
		for target.Kind() == reflect.Pointer {
			target = target.Elem()
		}
		if target.Kind() == reflect.Struct {
			if f, ok := target.FieldByName(n.Name); ok {
				return f.Type
			}
		}
		return nil
	case *Binary, *Not:
		return TypeOf[bool]()
	case *Lambda:
		return ResultType(n.Body)
	default:
		return nil
	}
}
