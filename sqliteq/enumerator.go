package sqliteq

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
)

// rowsEnumerator streams scanned rows from an open result set. It is
// single-pass: once Next reports false or an error the cursor is spent, and
// the caller must Close it either way.
type rowsEnumerator struct {
	rows    *sql.Rows
	scan    scanFunc
	token   string
	current any
}

func (e *rowsEnumerator) Next(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !e.rows.Next() {
		if err := e.rows.Err(); err != nil {
			return false, fmt.Errorf("query %s: %w", e.token, err)
		}
		return false, nil
	}
	v, err := e.scan(e.rows)
	if err != nil {
		return false, fmt.Errorf("scan %s: %w", e.token, err)
	}
	e.current = v.Interface()
	return true, nil
}

func (e *rowsEnumerator) Current() any { return e.current }

func (e *rowsEnumerator) Close() error { return e.rows.Close() }

// sliceEnumerator adapts an already-materialized slice onto the enumerator
// contract, used when a chain has no single-query form.
type sliceEnumerator struct {
	items reflect.Value
	idx   int
}

func newSliceEnumerator(items reflect.Value) *sliceEnumerator {
	return &sliceEnumerator{items: items, idx: -1}
}

func (e *sliceEnumerator) Next(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if e.idx+1 >= e.items.Len() {
		return false, nil
	}
	e.idx++
	return true, nil
}

func (e *sliceEnumerator) Current() any { return e.items.Index(e.idx).Interface() }

func (e *sliceEnumerator) Close() error { return nil }
