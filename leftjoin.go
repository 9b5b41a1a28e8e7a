package sequent

import (
	"reflect"

	"github.com/roach88/sequent/expr"
	"github.com/roach88/sequent/qerr"
)

// joinGroup is the intermediate composite row a left-outer join flows
// through: one left element paired with its (possibly empty) matches. It is
// never exposed to callers; the flattening step consumes it.
type joinGroup[L, R any] struct {
	Left   L
	Rights []R
}

// LeftJoin builds a left-outer join of left against right on the given key
// selectors.
//
// Every left element appears in the result: once per matching right element
// when matches exist, and exactly once paired with the zero right value
// when none do. Result order is left-major, then right-minor, following the
// underlying group-join and flattening chain.
//
// leftKey and rightKey are single-parameter selectors onto a shared key
// shape; sel is the caller's two-parameter (left, right) result selector.
// Internally the join is a structural group-join into a composite row
// followed by a flattening step over DefaultIfEmpty of the matches, and
// sel's parameters are rewritten onto that composite: references to sel's
// left parameter become the composite's left member, references to its
// right parameter become the flattening step's per-row variable.
//
// The result uses left's provider.
func LeftJoin[L, R, K, Out any](
	left *Queryable[L],
	right *Queryable[R],
	leftKey, rightKey *expr.Lambda,
	sel *expr.Lambda,
) (*Queryable[Out], error) {
	if right == nil {
		return nil, invalidArg("LeftJoin", "right sequence is nil")
	}
	if err := requireKeySelector(leftKey, "left"); err != nil {
		return nil, err
	}
	if err := requireKeySelector(rightKey, "right"); err != nil {
		return nil, err
	}
	if sel == nil {
		return nil, invalidArg("LeftJoin", "result selector is nil")
	}
	if len(sel.Params) != 2 {
		return nil, invalidArg("LeftJoin",
			"result selector must take exactly two parameters, has %d", len(sel.Params))
	}

	composite := expr.TypeOf[joinGroup[L, R]]()

	// Step 1: structural group-join producing one composite per left
	// element. The composite constructor is a typed closure; it never needs
	// translation because the flattening step below consumes it.
	groupJoin := expr.NewCall(expr.OpGroupJoin,
		[]reflect.Type{expr.TypeOf[L](), expr.TypeOf[R](), expr.TypeOf[K](), composite},
		left.exp, right.exp, leftKey, rightKey,
		expr.FuncOf(func(l L, rs []R) joinGroup[L, R] {
			return joinGroup[L, R]{Left: l, Rights: rs}
		}))

	// Step 2: flatten each composite over DefaultIfEmpty of its matches, so
	// an unmatched left yields one row with the zero right value.
	g := &expr.Parameter{Name: "g", Of: composite}
	collectionSel := &expr.Lambda{
		Params: []*expr.Parameter{g},
		Body: expr.NewCall(expr.OpDefaultIfEmpty,
			[]reflect.Type{expr.TypeOf[R]()},
			&expr.Field{Target: g, Name: "Rights"}),
	}

	// Step 3: rewire the caller's selector onto the composite shape. A
	// quoted body has its parameters substituted; a closure body is rewrapped
	// so it receives the composite's left member instead of the composite.
	var resultSel expr.Expression
	if fb, ok := sel.Body.(*expr.Func); ok {
		fn, ok := fb.Fn.(func(L, R) Out)
		if !ok {
			return nil, invalidArg("LeftJoin",
				"result selector closure is %T, want func(L, R) Out", fb.Fn)
		}
		resultSel = expr.FuncOf(func(gv joinGroup[L, R], rv R) Out {
			return fn(gv.Left, rv)
		})
	} else {
		r := expr.NewParam[R]("r")
		body := expr.Substitute(sel.Body, map[*expr.Parameter]expr.Expression{
			sel.Params[0]: &expr.Field{Target: g, Name: "Left"},
			sel.Params[1]: r,
		})
		if body == nil {
			return nil, qerr.New(qerr.CodeInternal, "LeftJoin",
				"result selector rewrite produced no body")
		}
		resultSel = &expr.Lambda{Params: []*expr.Parameter{g, r}, Body: body}
	}

	flattened := expr.NewCall(expr.OpSelectMany,
		[]reflect.Type{composite, expr.TypeOf[R](), expr.TypeOf[Out]()},
		groupJoin, collectionSel, resultSel)

	return &Queryable[Out]{exp: flattened, provider: left.provider}, nil
}

func requireKeySelector(sel *expr.Lambda, side string) error {
	if sel == nil {
		return invalidArg("LeftJoin", "%s key selector is nil", side)
	}
	if len(sel.Params) != 1 {
		return invalidArg("LeftJoin",
			"%s key selector must take exactly one parameter, has %d", side, len(sel.Params))
	}
	return nil
}
