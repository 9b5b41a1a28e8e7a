package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sequent"
	"github.com/roach88/sequent/expr"
)

// QueryDef is the YAML shape of a query definition file.
//
// Conditions under `where` are conjoined; conditions under `any` form one
// disjunction group, matching rows that satisfy at least one of them.
type QueryDef struct {
	Table  string      `yaml:"table"`
	Select string      `yaml:"select,omitempty"` // single-column projection
	Where  []Condition `yaml:"where,omitempty"`
	Any    []Condition `yaml:"any,omitempty"`
	Skip   int         `yaml:"skip,omitempty"`
	Take   int         `yaml:"take,omitempty"` // 0 = no limit
}

// Condition is one field comparison.
type Condition struct {
	Field string `yaml:"field"`
	Op    string `yaml:"op"` // eq ne lt le gt ge
	Value any    `yaml:"value"`
}

var conditionOps = map[string]func(expr.Node, any) expr.Node{
	"eq": expr.Node.Eq,
	"ne": expr.Node.Ne,
	"lt": expr.Node.Lt,
	"le": expr.Node.Le,
	"gt": expr.Node.Gt,
	"ge": expr.Node.Ge,
}

// LoadQueryDef reads and checks a query definition file.
func LoadQueryDef(path string) (*QueryDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query definition: %w", err)
	}
	var def QueryDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse query definition: %w", err)
	}
	if err := def.check(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *QueryDef) check() error {
	if d.Table == "" {
		return fmt.Errorf("query definition has no table")
	}
	for _, c := range append(append([]Condition(nil), d.Where...), d.Any...) {
		if c.Field == "" {
			return fmt.Errorf("condition has no field")
		}
		if _, ok := conditionOps[c.Op]; !ok {
			return fmt.Errorf("condition on %q has unknown op %q", c.Field, c.Op)
		}
	}
	if d.Skip < 0 || d.Take < 0 {
		return fmt.Errorf("skip and take must not be negative")
	}
	return nil
}

// lambda quotes one condition as a predicate over a map-shaped row.
func (c Condition) lambda() *expr.Lambda {
	row := expr.NewParam[map[string]any]("row")
	build := conditionOps[c.Op]
	body := build(expr.E(row).Field(c.Field), expr.Const(normalizeYAML(c.Value)))
	return expr.Predicate(body, row)
}

// Apply composes the definition's filters and window onto a base sequence.
// The projection, which changes the element type, is applied separately by
// the caller via Projection.
func (d *QueryDef) Apply(q *sequent.Queryable[map[string]any]) (*sequent.Queryable[map[string]any], error) {
	for _, c := range d.Where {
		q = q.Where(c.lambda())
	}
	if len(d.Any) > 0 {
		preds := make([]*expr.Lambda, len(d.Any))
		for i, c := range d.Any {
			preds[i] = c.lambda()
		}
		var err error
		q, err = sequent.WhereAny(q, preds)
		if err != nil {
			return nil, err
		}
	}
	if d.Skip > 0 {
		q = q.Skip(d.Skip)
	}
	if d.Take > 0 {
		q = q.Take(d.Take)
	}
	return q, nil
}

// Projection returns the single-column selector, or nil when the definition
// keeps whole rows.
func (d *QueryDef) Projection() *expr.Lambda {
	if d.Select == "" {
		return nil
	}
	return expr.FieldSelector[map[string]any](d.Select)
}

// normalizeYAML widens YAML scalar types onto the shapes SQLite parameters
// and the in-process comparison both handle: ints become int64.
func normalizeYAML(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	default:
		return v
	}
}
