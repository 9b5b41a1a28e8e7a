package sqliteq

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/roach88/sequent"
	"github.com/roach88/sequent/expr"
	"github.com/roach88/sequent/internal/evaluate"
	"github.com/roach88/sequent/qerr"
)

// provider executes query expressions against one SQLite table.
//
// It implements all three execution capabilities: Provider (synchronous),
// AsyncExecutor (single results), and AsyncEnumerable (streamed rows). Every
// execution carries a UUIDv7 token so a failure can be traced to the exact
// query that raised it.
type provider struct {
	db    *sql.DB
	table string
	elem  reflect.Type
	cols  []column
}

var _ sequent.Provider = (*provider)(nil)
var _ sequent.AsyncExecutor = (*provider)(nil)
var _ sequent.AsyncEnumerable = (*provider)(nil)

func queryToken() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Execute implements sequent.Provider.
func (p *provider) Execute(ctx context.Context, e expr.Expression) (any, error) {
	return p.run(ctx, e)
}

// ExecuteValue implements sequent.AsyncExecutor. SQLite queries block on the
// driver, so the synchronous path and the value path share one engine; the
// context gates both.
func (p *provider) ExecuteValue(ctx context.Context, e expr.Expression) (any, error) {
	return p.run(ctx, e)
}

// ExecuteEnumerator implements sequent.AsyncEnumerable by streaming rows
// from a compiled query. The caller owns the returned enumerator and must
// close it.
func (p *provider) ExecuteEnumerator(ctx context.Context, e expr.Expression) (sequent.Enumerator[any], error) {
	token := queryToken()
	pl, err := p.buildPlan(e)
	if err != nil {
		if !qerr.IsNotTranslatable(err) {
			return nil, tokenize(err, token)
		}
		// No single-query form. Materialize through the fallback and stream
		// the slice; closures still refuse translation inside fetchSlice.
		v, ferr := p.fetchSlice(ctx, e, token)
		if ferr != nil {
			return nil, ferr
		}
		return newSliceEnumerator(reflect.ValueOf(v)), nil
	}
	query, params := p.rowsSQL(pl, false)
	rows, err := p.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", token, err)
	}
	_, scan := p.scannerFor(pl)
	return &rowsEnumerator{rows: rows, scan: scan, token: token}, nil
}

// run dispatches one terminal (or bare composition) expression.
func (p *provider) run(ctx context.Context, e expr.Expression) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	token := queryToken()

	call, ok := e.(*expr.Call)
	if !ok {
		return p.fetchSlice(ctx, e, token)
	}
	switch call.Op {
	case expr.OpToSlice:
		return p.fetchSlice(ctx, call.Args[0], token)

	case expr.OpWhere, expr.OpSelect, expr.OpSkip, expr.OpTake,
		expr.OpGroupJoin, expr.OpSelectMany, expr.OpDefaultIfEmpty:
		return p.fetchSlice(ctx, e, token)

	case expr.OpCount, expr.OpLongCount:
		return p.runCount(ctx, call, token)

	case expr.OpSum, expr.OpAverage, expr.OpMin, expr.OpMax:
		return p.runNumericAggregate(ctx, call, token)

	case expr.OpAny, expr.OpAll:
		return p.runQuantifier(ctx, call, token)

	case expr.OpSingle, expr.OpSingleOrDefault,
		expr.OpFirst, expr.OpFirstOrDefault,
		expr.OpLast, expr.OpLastOrDefault,
		expr.OpElementAt, expr.OpElementAtOrDefault:
		return p.runPick(ctx, call, token)

	case expr.OpAggregate, expr.OpContains, expr.OpSequenceEqual:
		// Caller-supplied folds and comparers have no SQL form. Materialize
		// the source rows and run the shared evaluator over them, so the
		// result and its error codes match the in-process path exactly.
		return p.delegate(ctx, call, token)

	default:
		return nil, tokenize(errNotTranslatable("operation %v has no SQLite execution", call.Op), token)
	}
}

// planSource compiles the call's source chain, folding the optional trailing
// predicate argument at predPos into the WHERE clause.
func (p *provider) planSource(c *expr.Call, predPos int) (*plan, error) {
	pl, err := p.buildPlan(c.Args[0])
	if err != nil {
		return nil, err
	}
	if predPos > 0 && len(c.Args) > predPos {
		if pl.windowed {
			return nil, errNotTranslatable("filter after skip/take cannot compile to one query")
		}
		frag, err := p.compilePredicate(c.Args[predPos], pl)
		if err != nil {
			return nil, err
		}
		pl.where = append(pl.where, frag)
	}
	return pl, nil
}

func (p *provider) runCount(ctx context.Context, c *expr.Call, token string) (any, error) {
	pl, err := p.planSource(c, 1)
	if err != nil || pl.windowed {
		return p.delegateOr(ctx, c, token, err)
	}
	query, params := p.scalarSQL(pl, "COUNT(*)")
	var n int64
	if err := p.db.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return nil, fmt.Errorf("query %s: %w", token, err)
	}
	if c.Op == expr.OpLongCount {
		return n, nil
	}
	return int(n), nil
}

// aggregateColumn resolves the column a numeric aggregate folds over: the
// optional selector argument, or a prior projection in the chain.
func (p *provider) aggregateColumn(c *expr.Call, pl *plan) (string, error) {
	if len(c.Args) > 1 {
		return p.selectorColumn(c.Args[1])
	}
	if pl.column != "" {
		return pl.column, nil
	}
	return "", errNotTranslatable("aggregate over whole rows needs a selector")
}

func (p *provider) runNumericAggregate(ctx context.Context, c *expr.Call, token string) (any, error) {
	pl, err := p.planSource(c, 0)
	if err != nil || pl.windowed {
		return p.delegateOr(ctx, c, token, err)
	}
	col, err := p.aggregateColumn(c, pl)
	if err != nil {
		return p.delegateOr(ctx, c, token, err)
	}

	var fn string
	switch c.Op {
	case expr.OpSum:
		fn = "SUM"
	case expr.OpAverage:
		fn = "AVG"
	case expr.OpMin:
		fn = "MIN"
	case expr.OpMax:
		fn = "MAX"
	}
	query, params := p.scalarSQL(pl, fmt.Sprintf("%s(%s)", fn, col))

	// SQL aggregates fold NULL inputs away and return NULL for an empty
	// input, which is exactly the shape aggregateResult maps back onto the
	// operation's result contract.
	var raw any
	if err := p.db.QueryRowContext(ctx, query, params...).Scan(&raw); err != nil {
		return nil, fmt.Errorf("query %s: %w", token, err)
	}
	return p.aggregateResult(c, raw, token)
}

// aggregateResult converts a scanned aggregate value onto the operation's
// declared result type, reproducing the evaluator's empty-sequence
// semantics.
func (p *provider) aggregateResult(c *expr.Call, raw any, token string) (any, error) {
	rt := c.TypeArgs[len(c.TypeArgs)-1]
	nullable := rt.Kind() == reflect.Pointer
	base := rt
	if nullable {
		base = rt.Elem()
	}
	// Average always reports float64.
	if c.Op == expr.OpAverage {
		base = reflect.TypeOf(float64(0))
	}

	if raw == nil {
		switch {
		case c.Op == expr.OpSum && !nullable:
			return reflect.Zero(base).Interface(), nil
		case c.Op == expr.OpSum:
			z := reflect.New(base)
			return z.Interface(), nil
		case nullable:
			if c.Op == expr.OpAverage {
				return (*float64)(nil), nil
			}
			return reflect.Zero(rt).Interface(), nil
		default:
			e := qerr.New(qerr.CodeNoElements, c.Op.String(), "sequence contains no elements")
			e.Token = token
			return nil, e
		}
	}

	rv := reflect.ValueOf(raw)
	if !rv.Type().ConvertibleTo(base) {
		return nil, tokenize(qerr.New(qerr.CodeInternal, c.Op.String(),
			"driver value %T does not convert to %s", raw, base), token)
	}
	out := rv.Convert(base)
	if nullable && c.Op != expr.OpAverage {
		ptr := reflect.New(base)
		ptr.Elem().Set(out)
		return ptr.Interface(), nil
	}
	if nullable { // *float64 average
		f := out.Interface().(float64)
		return &f, nil
	}
	return out.Interface(), nil
}

func (p *provider) runQuantifier(ctx context.Context, c *expr.Call, token string) (any, error) {
	pl, err := p.buildPlan(c.Args[0])
	if err != nil || pl.windowed {
		return p.delegateOr(ctx, c, token, err)
	}
	var frag string
	if len(c.Args) > 1 {
		frag, err = p.compilePredicate(c.Args[1], pl)
		if err != nil {
			return p.delegateOr(ctx, c, token, err)
		}
	}
	switch c.Op {
	case expr.OpAny:
		if frag != "" {
			pl.where = append(pl.where, frag)
		}
	case expr.OpAll:
		// All(pred) holds iff no row violates pred.
		pl.where = append(pl.where, "NOT ("+frag+")")
	}
	query, params := p.scalarSQL(pl, "COUNT(*) > 0")
	var found bool
	if err := p.db.QueryRowContext(ctx, query, params...).Scan(&found); err != nil {
		return nil, fmt.Errorf("query %s: %w", token, err)
	}
	if c.Op == expr.OpAll {
		return !found, nil
	}
	return found, nil
}

func (p *provider) runPick(ctx context.Context, c *expr.Call, token string) (any, error) {
	op := c.Op
	elementAt := op == expr.OpElementAt || op == expr.OpElementAtOrDefault
	predPos := 1
	if elementAt {
		predPos = 0 // argument 1 is the index, not a predicate
	}
	pl, err := p.planSource(c, predPos)
	if err != nil || pl.windowed {
		return p.delegateOr(ctx, c, token, err)
	}
	filtered := !elementAt && len(c.Args) > 1

	desc := false
	switch op {
	case expr.OpFirst, expr.OpFirstOrDefault:
		pl.limit = 1
	case expr.OpSingle, expr.OpSingleOrDefault:
		pl.limit = 2 // one extra row proves non-uniqueness
	case expr.OpLast, expr.OpLastOrDefault:
		pl.limit = 1
		desc = true
	default: // ElementAt, ElementAtOrDefault
		idx, err := constInt(c.Args[1])
		if err != nil {
			return p.delegateOr(ctx, c, token, err)
		}
		if idx < 0 {
			e := qerr.New(qerr.CodeIndexOutOfRange, "ElementAt", "index %d out of range", idx)
			e.Token = token
			return nil, e
		}
		pl.offset = idx
		pl.limit = 1
	}

	rows, elem, err := p.fetchRows(ctx, pl, desc, token)
	if err != nil {
		return nil, err
	}

	orDefault := op == expr.OpSingleOrDefault || op == expr.OpFirstOrDefault ||
		op == expr.OpLastOrDefault || op == expr.OpElementAtOrDefault
	if len(rows) == 0 {
		if orDefault {
			return reflect.Zero(elem).Interface(), nil
		}
		var e *qerr.Error
		switch {
		case elementAt:
			idx, _ := constInt(c.Args[1])
			e = qerr.New(qerr.CodeIndexOutOfRange, "ElementAt", "index %d out of range", idx)
		case filtered:
			e = qerr.New(qerr.CodeNoElements, op.String(), "sequence contains no matching element")
		default:
			e = qerr.New(qerr.CodeNoElements, op.String(), "sequence contains no elements")
		}
		e.Token = token
		return nil, e
	}
	if (op == expr.OpSingle || op == expr.OpSingleOrDefault) && len(rows) > 1 {
		e := qerr.New(qerr.CodeMultipleElements, op.String(), "sequence contains more than one element")
		e.Token = token
		return nil, e
	}
	return rows[0].Interface(), nil
}

// delegateOr routes a call to the local evaluator when compile failed with a
// translatable-in-principle shape (windowed sources, whole-row aggregates).
// Genuinely untranslatable trees keep their error.
func (p *provider) delegateOr(ctx context.Context, c *expr.Call, token string, err error) (any, error) {
	if err != nil && containsFunc(c) {
		return nil, tokenize(err, token)
	}
	return p.delegate(ctx, c, token)
}

// delegate materializes the call's source rows and evaluates the terminal
// in process. The rewritten call keeps every other argument untouched, so
// folds, comparers, and default values behave identically here and locally.
func (p *provider) delegate(ctx context.Context, c *expr.Call, token string) (any, error) {
	src, err := p.fetchSlice(ctx, c.Args[0], token)
	if err != nil {
		return nil, err
	}
	args := append([]expr.Expression(nil), c.Args...)
	args[0] = &expr.Constant{Value: src, Of: reflect.TypeOf(src)}
	out, err := evaluate.Execute(ctx, &expr.Call{Op: c.Op, TypeArgs: c.TypeArgs, Args: args})
	if err != nil {
		return nil, tokenize(err, token)
	}
	return out, nil
}

// fetchSlice materializes a composition chain as a typed slice. Chains with
// no single-query form (joins, flattening) run each table source through one
// query and evaluate the rest in process.
func (p *provider) fetchSlice(ctx context.Context, e expr.Expression, token string) (any, error) {
	pl, err := p.buildPlan(e)
	if err != nil {
		if !qerr.IsNotTranslatable(err) {
			return nil, tokenize(err, token)
		}
		if containsFunc(e) {
			// Opaque closures never execute on a translating provider, even
			// via the materializing fallback. Callers with closure logic
			// belong on the in-memory provider.
			return nil, tokenize(err, token)
		}
		return p.fetchComposite(ctx, e, token)
	}
	rows, elem, err := p.fetchRows(ctx, pl, false, token)
	if err != nil {
		return nil, err
	}
	out := reflect.MakeSlice(reflect.SliceOf(elem), len(rows), len(rows))
	for i, r := range rows {
		out.Index(i).Set(r)
	}
	return out.Interface(), nil
}

// fetchComposite loads every table source in the tree, splices the rows in
// as constants, and evaluates the whole expression in process.
func (p *provider) fetchComposite(ctx context.Context, e expr.Expression, token string) (any, error) {
	var loadErr error
	local := expr.Rewrite(e, func(n expr.Expression) expr.Expression {
		src, ok := n.(*expr.Source)
		if !ok || loadErr != nil {
			return n
		}
		rows, err := p.forSource(src).fetchSlice(ctx, src, token)
		if err != nil {
			loadErr = err
			return n
		}
		return &expr.Constant{Value: rows, Of: reflect.TypeOf(rows)}
	})
	if loadErr != nil {
		return nil, loadErr
	}
	out, err := evaluate.Execute(ctx, local)
	if err != nil {
		return nil, tokenize(err, token)
	}
	return out, nil
}

// forSource returns the provider to fetch one source through. A composite
// tree can reference other tables than p's own; those scan with their own
// element type and column mapping.
func (p *provider) forSource(src *expr.Source) *provider {
	if src.Name == p.table && src.Elem == p.elem {
		return p
	}
	return &provider{db: p.db, table: src.Name, elem: src.Elem, cols: columnsOf(src.Elem)}
}

// fetchRows runs a plan's row query and returns the scanned values with
// their element type.
func (p *provider) fetchRows(ctx context.Context, pl *plan, desc bool, token string) ([]reflect.Value, reflect.Type, error) {
	query, params := p.rowsSQL(pl, desc)
	rows, err := p.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, nil, fmt.Errorf("query %s: %w", token, err)
	}
	defer rows.Close()

	elem, scan := p.scannerFor(pl)
	var out []reflect.Value
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scan %s: %w", token, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("query %s: %w", token, err)
	}
	if desc { // rows came back reversed
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, elem, nil
}

// containsFunc reports whether the tree carries an opaque closure in a
// position a translating provider would have to execute. Result selectors of
// a join or flattening step are exempt: those steps always evaluate in
// process over materialized rows, so a closure there is fine.
func containsFunc(e expr.Expression) bool {
	switch n := e.(type) {
	case *expr.Func:
		return true
	case *expr.Call:
		args := n.Args
		switch n.Op {
		case expr.OpGroupJoin:
			args = n.Args[:4]
		case expr.OpSelectMany:
			args = n.Args[:2]
		}
		for _, a := range args {
			if containsFunc(a) {
				return true
			}
		}
		return false
	case *expr.Lambda:
		return containsFunc(n.Body)
	case *expr.Binary:
		return containsFunc(n.Left) || containsFunc(n.Right)
	case *expr.Not:
		return containsFunc(n.Operand)
	case *expr.Field:
		return containsFunc(n.Target)
	default:
		return false
	}
}

// tokenize stamps the execution token onto a structured error; foreign
// errors pass through untouched.
func tokenize(err error, token string) error {
	var qe *qerr.Error
	if errors.As(err, &qe) && qe.Token == "" {
		qe.Token = token
	}
	return err
}
