package sequent

import (
	"github.com/roach88/sequent/expr"
)

// WhereAny filters the sequence by the logical OR of the supplied
// predicates.
//
// Zero predicates means "no criteria supplied", which matches nothing: the
// result is an always-empty sequence, not an unfiltered one. One predicate
// is equivalent to Where with that predicate. Each input predicate keeps
// its own parameter; WhereAny allocates one fresh shared parameter and
// rewrites every predicate body onto it before folding, without mutating
// the inputs, so the same predicates remain reusable elsewhere.
//
// A nil element in preds is a caller error and fails immediately. A nil
// slice is an empty collection, as everywhere in Go.
func WhereAny[T any](q *Queryable[T], preds []*expr.Lambda) (*Queryable[T], error) {
	shared := expr.NewParam[T]("x")

	var body expr.Expression = expr.TypedConst(false)
	for i, p := range preds {
		if p == nil {
			return nil, invalidArg("WhereAny", "predicate %d is nil", i)
		}
		if len(p.Params) != 1 {
			return nil, invalidArg("WhereAny",
				"predicate %d must take exactly one parameter, has %d", i, len(p.Params))
		}
		unified := expr.Substitute(p.Body, map[*expr.Parameter]expr.Expression{
			p.Params[0]: shared,
		})
		if i == 0 {
			body = unified
			continue
		}
		body = &expr.Binary{Op: expr.OpOr, Left: body, Right: unified}
	}

	return q.Where(&expr.Lambda{
		Params: []*expr.Parameter{shared},
		Body:   body,
	}), nil
}
