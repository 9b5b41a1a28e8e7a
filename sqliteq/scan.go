package sqliteq

import (
	"database/sql"
	"fmt"
	"reflect"
)

// scanFunc scans the current row into a value of the plan's element type.
type scanFunc func(rows *sql.Rows) (reflect.Value, error)

// scannerFor builds the row scanner for a plan, returning the element type
// rows produce alongside it. A projected plan scans one column; otherwise
// each mapped column scans into its struct field in declaration order,
// matching the column list rowsSQL emits.
func (p *provider) scannerFor(pl *plan) (reflect.Type, scanFunc) {
	if pl.column != "" {
		t := pl.colType
		return t, func(rows *sql.Rows) (reflect.Value, error) {
			var raw any
			if err := rows.Scan(&raw); err != nil {
				return reflect.Value{}, err
			}
			return coerceScanned(raw, t)
		}
	}

	if p.elem.Kind() == reflect.Map {
		return p.elem, scanMapRow
	}

	elem := p.elem
	cols := p.cols
	return elem, func(rows *sql.Rows) (reflect.Value, error) {
		v := reflect.New(elem).Elem()
		dest := make([]any, len(cols))
		for i, c := range cols {
			dest[i] = v.FieldByName(c.field).Addr().Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return reflect.Value{}, err
		}
		return v, nil
	}
}

// scanMapRow scans a row into map[string]any keyed by the result set's own
// column names, for queryables without a static row type.
func scanMapRow(rows *sql.Rows) (reflect.Value, error) {
	names, err := rows.Columns()
	if err != nil {
		return reflect.Value{}, err
	}
	raw := make([]any, len(names))
	dest := make([]any, len(names))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return reflect.Value{}, err
	}
	row := make(map[string]any, len(names))
	for i, name := range names {
		v := raw[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		row[name] = v
	}
	return reflect.ValueOf(row), nil
}

// coerceScanned converts a driver value (int64, float64, string, []byte,
// bool, nil) onto the declared element type. A nil driver value becomes the
// type's zero, which for nullable columns is the nil pointer.
func coerceScanned(raw any, t reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(t), nil
	}
	base := t
	nullable := t.Kind() == reflect.Pointer
	if nullable {
		base = t.Elem()
	}
	rv := reflect.ValueOf(raw)
	if b, ok := raw.([]byte); ok && base.Kind() == reflect.String {
		rv = reflect.ValueOf(string(b))
	}
	if !rv.Type().ConvertibleTo(base) {
		return reflect.Value{}, fmt.Errorf("column value %T does not convert to %s", raw, base)
	}
	out := rv.Convert(base)
	if nullable {
		ptr := reflect.New(base)
		ptr.Elem().Set(out)
		return ptr, nil
	}
	return out, nil
}
