package sqliteq

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/roach88/sequent/expr"
	"github.com/roach88/sequent/qerr"
)

// column maps one exported struct field onto a table column.
type column struct {
	field string // Go field name
	name  string // column name
}

// columnsOf derives the column mapping for an element type: the `db` tag
// when present, otherwise the snake-cased field name. Fields tagged
// `db:"-"` are skipped.
func columnsOf(elem reflect.Type) []column {
	for elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return nil
	}
	var cols []column
	for i := 0; i < elem.NumField(); i++ {
		f := elem.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		name := f.Tag.Get("db")
		if name == "-" {
			continue
		}
		if name == "" {
			name = snakeCase(f.Name)
		}
		cols = append(cols, column{field: f.Name, name: name})
	}
	return cols
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// plan is the SQL shape compiled from a composition chain: one table, a
// conjunction of predicate fragments, an optional single-column projection,
// and an optional skip/take window.
type plan struct {
	table    string
	where    []string
	params   []any
	offset   int
	limit    int // -1 = unlimited
	windowed bool
	column   string       // non-empty after a field projection
	colType  reflect.Type // element type after projection
}

func errNotTranslatable(format string, args ...any) error {
	return qerr.New(qerr.CodeNotTranslatable, "", format, args...)
}

// buildPlan folds a composition chain (Source, Where, Skip, Take, Select)
// into a plan. Anything else in the chain is not translatable.
func (p *provider) buildPlan(e expr.Expression) (*plan, error) {
	switch n := e.(type) {
	case *expr.Source:
		if !identOK(n.Name) {
			return nil, errNotTranslatable("%q is not a valid table name", n.Name)
		}
		return &plan{table: n.Name, limit: -1}, nil

	case *expr.Call:
		switch n.Op {
		case expr.OpWhere:
			pl, err := p.buildPlan(n.Args[0])
			if err != nil {
				return nil, err
			}
			if pl.windowed {
				return nil, errNotTranslatable("filter after skip/take cannot compile to one query")
			}
			frag, err := p.compilePredicate(n.Args[1], pl)
			if err != nil {
				return nil, err
			}
			pl.where = append(pl.where, frag)
			return pl, nil

		case expr.OpSkip:
			pl, err := p.buildPlan(n.Args[0])
			if err != nil {
				return nil, err
			}
			count, err := constInt(n.Args[1])
			if err != nil {
				return nil, err
			}
			if count < 0 {
				count = 0
			}
			pl.offset += count
			if pl.limit >= 0 {
				pl.limit -= count
				if pl.limit < 0 {
					pl.limit = 0
				}
			}
			pl.windowed = true
			return pl, nil

		case expr.OpTake:
			pl, err := p.buildPlan(n.Args[0])
			if err != nil {
				return nil, err
			}
			count, err := constInt(n.Args[1])
			if err != nil {
				return nil, err
			}
			if count < 0 {
				count = 0
			}
			if pl.limit < 0 || count < pl.limit {
				pl.limit = count
			}
			pl.windowed = true
			return pl, nil

		case expr.OpSelect:
			pl, err := p.buildPlan(n.Args[0])
			if err != nil {
				return nil, err
			}
			if pl.column != "" {
				return nil, errNotTranslatable("projection over an already-projected sequence")
			}
			col, err := p.selectorColumn(n.Args[1])
			if err != nil {
				return nil, err
			}
			pl.column = col
			pl.colType = n.TypeArgs[1]
			return pl, nil

		default:
			return nil, errNotTranslatable("operation %v has no SQL form", n.Op)
		}

	case *expr.Constant:
		return nil, errNotTranslatable("in-memory sequence reached the SQLite provider")

	default:
		return nil, errNotTranslatable("expression %T has no SQL form", e)
	}
}

// selectorColumn resolves a single-field selector lambda to its column.
func (p *provider) selectorColumn(sel expr.Expression) (string, error) {
	lam, ok := sel.(*expr.Lambda)
	if !ok {
		return "", errNotTranslatable("opaque closure selector cannot compile to SQL")
	}
	if len(lam.Params) != 1 {
		return "", errNotTranslatable("selector must take exactly one parameter")
	}
	f, ok := lam.Body.(*expr.Field)
	if !ok {
		return "", errNotTranslatable("only single-field projections compile to SQL")
	}
	if f.Target != expr.Expression(lam.Params[0]) {
		return "", errNotTranslatable("projection must access the lambda parameter directly")
	}
	return p.columnFor(f.Name)
}

func (p *provider) columnFor(field string) (string, error) {
	// Map-shaped rows carry no static column set; the field name is the
	// column, checked against identifier syntax since it is caller data.
	if p.elem.Kind() == reflect.Map {
		if !identOK(field) {
			return "", errNotTranslatable("%q is not a valid column name", field)
		}
		return field, nil
	}
	for _, c := range p.cols {
		if c.field == field {
			return c.name, nil
		}
	}
	return "", errNotTranslatable("type %s has no column for field %q", p.elem, field)
}

// identOK reports whether s is a bare SQL identifier. Dynamic table and
// column names never reach the query text otherwise.
func identOK(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compilePredicate compiles a quoted predicate lambda to a parameterized
// SQL fragment, appending bound values to the plan.
func (p *provider) compilePredicate(pred expr.Expression, pl *plan) (string, error) {
	lam, ok := pred.(*expr.Lambda)
	if !ok {
		return "", errNotTranslatable("opaque closure predicate cannot compile to SQL")
	}
	if len(lam.Params) != 1 {
		return "", errNotTranslatable("predicate must take exactly one parameter")
	}
	return p.compileBool(lam.Body, lam.Params[0], pl)
}

func (p *provider) compileBool(e expr.Expression, param *expr.Parameter, pl *plan) (string, error) {
	switch n := e.(type) {
	case *expr.Binary:
		return p.compileBinary(n, param, pl)
	case *expr.Not:
		inner, err := p.compileBool(n.Operand, param, pl)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case *expr.Constant:
		if b, ok := n.Value.(bool); ok {
			// Constant-false is how an empty disjunction filters; SQLite has
			// no boolean literals.
			if b {
				return "1=1", nil
			}
			return "1=0", nil
		}
		return "", errNotTranslatable("constant %T in boolean position", n.Value)
	default:
		return "", errNotTranslatable("expression %T in boolean position", e)
	}
}

func (p *provider) compileBinary(b *expr.Binary, param *expr.Parameter, pl *plan) (string, error) {
	if b.Op == expr.OpAnd || b.Op == expr.OpOr {
		left, err := p.compileBool(b.Left, param, pl)
		if err != nil {
			return "", err
		}
		right, err := p.compileBool(b.Right, param, pl)
		if err != nil {
			return "", err
		}
		word := "AND"
		if b.Op == expr.OpOr {
			word = "OR"
		}
		return "(" + left + " " + word + " " + right + ")", nil
	}

	left, err := p.compileOperand(b.Left, param, pl)
	if err != nil {
		return "", err
	}

	// NULL needs IS / IS NOT instead of = / !=.
	if k, ok := b.Right.(*expr.Constant); ok && isNilValue(k.Value) {
		switch b.Op {
		case expr.OpEq:
			return left + " IS NULL", nil
		case expr.OpNe:
			return left + " IS NOT NULL", nil
		default:
			return "", errNotTranslatable("NULL is not ordered")
		}
	}

	right, err := p.compileOperand(b.Right, param, pl)
	if err != nil {
		return "", err
	}
	var op string
	switch b.Op {
	case expr.OpEq:
		op = "="
	case expr.OpNe:
		op = "!="
	case expr.OpLt:
		op = "<"
	case expr.OpLe:
		op = "<="
	case expr.OpGt:
		op = ">"
	case expr.OpGe:
		op = ">="
	default:
		return "", errNotTranslatable("operator %v has no SQL form", b.Op)
	}
	return left + " " + op + " " + right, nil
}

func (p *provider) compileOperand(e expr.Expression, param *expr.Parameter, pl *plan) (string, error) {
	switch n := e.(type) {
	case *expr.Field:
		if n.Target != expr.Expression(param) {
			return "", errNotTranslatable("field access on a non-parameter value")
		}
		return p.columnFor(n.Name)
	case *expr.Parameter:
		if n != param {
			return "", errNotTranslatable("reference to a foreign parameter")
		}
		// A bare parameter reference is only meaningful after a projection
		// narrowed the element to one column.
		if pl.column == "" {
			return "", errNotTranslatable("whole-row reference in a predicate")
		}
		return pl.column, nil
	case *expr.Constant:
		pl.params = append(pl.params, derefValue(n.Value))
		return "?", nil
	default:
		return "", errNotTranslatable("expression %T in a predicate operand", e)
	}
}

func constInt(e expr.Expression) (int, error) {
	k, ok := e.(*expr.Constant)
	if !ok {
		return 0, errNotTranslatable("count argument is not a constant")
	}
	switch v := k.Value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	default:
		return 0, errNotTranslatable("count argument is %T, want integer", k.Value)
	}
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return rv.IsNil()
	}
	return false
}

// derefValue unwraps non-nil pointers so nullable constants bind as their
// underlying value.
func derefValue(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return v
}

// selectColumns returns the projected column list for a plan.
func (p *provider) selectColumns(pl *plan) string {
	if pl.column != "" {
		return pl.column
	}
	if len(p.cols) == 0 {
		return "*"
	}
	names := make([]string, len(p.cols))
	for i, c := range p.cols {
		names[i] = c.name
	}
	return strings.Join(names, ", ")
}

// rowsSQL assembles the row-fetching query for a plan. Every query orders
// by rowid so results are deterministic.
func (p *provider) rowsSQL(pl *plan, desc bool) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", p.selectColumns(pl), pl.table)
	params := append([]any(nil), pl.params...)
	if len(pl.where) > 0 {
		b.WriteString(" WHERE " + strings.Join(pl.where, " AND "))
	}
	b.WriteString(" ORDER BY rowid")
	if desc {
		b.WriteString(" DESC")
	}
	if pl.limit >= 0 || pl.offset > 0 {
		limit := pl.limit
		if limit < 0 {
			limit = -1 // SQLite: no limit
		}
		b.WriteString(" LIMIT ?")
		params = append(params, limit)
		if pl.offset > 0 {
			b.WriteString(" OFFSET ?")
			params = append(params, pl.offset)
		}
	}
	return b.String(), params
}

// CompileSQL compiles a composition chain to the parameterized row query it
// would execute, without touching a database. Chains with no single-query
// form report NOT_TRANSLATABLE.
func CompileSQL(e expr.Expression) (string, []any, error) {
	src := findSource(e)
	if src == nil {
		return "", nil, errNotTranslatable("expression has no table source")
	}
	p := &provider{table: src.Name, elem: src.Elem, cols: columnsOf(src.Elem)}
	pl, err := p.buildPlan(e)
	if err != nil {
		return "", nil, err
	}
	query, params := p.rowsSQL(pl, false)
	return query, params, nil
}

func findSource(e expr.Expression) *expr.Source {
	var src *expr.Source
	expr.Rewrite(e, func(n expr.Expression) expr.Expression {
		if s, ok := n.(*expr.Source); ok && src == nil {
			src = s
		}
		return n
	})
	return src
}

// scalarSQL assembles a single-value aggregate query (COUNT, SUM, ...)
// over an unwindowed plan.
func (p *provider) scalarSQL(pl *plan, agg string) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", agg, pl.table)
	if len(pl.where) > 0 {
		b.WriteString(" WHERE " + strings.Join(pl.where, " AND "))
	}
	return b.String(), append([]any(nil), pl.params...)
}
