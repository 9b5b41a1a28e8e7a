package sequent

import (
	"context"

	"github.com/roach88/sequent/expr"
	"github.com/roach88/sequent/qerr"
)

// ToSliceAsync materializes the sequence in source order.
//
// Against an enumeration-capable provider the dispatcher requests an
// asynchronous enumerator for the whole source expression and drives it to
// exhaustion, each advance being a suspension point. Otherwise the source
// is materialized synchronously in one call.
func ToSliceAsync[T any](ctx context.Context, q *Queryable[T]) ([]T, error) {
	if en, ok := q.provider.(AsyncEnumerable); ok {
		e, err := en.ExecuteEnumerator(ctx, q.exp)
		if err != nil {
			return nil, err
		}
		defer e.Close()
		var out []T
		for {
			more, err := e.Next(ctx)
			if err != nil {
				return nil, err
			}
			if !more {
				return out, nil
			}
			item, err := retype[T](expr.OpToSlice, e.Current())
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
	}
	return execValue[[]T](ctx, q.provider, sourceCall[T](expr.OpToSlice, q.exp))
}

// ToMapAsync materializes the sequence into a mapping keyed by keySel.
// Duplicate keys are a DUPLICATE_KEY error, never a silent overwrite.
func ToMapAsync[T any, K comparable](ctx context.Context, q *Queryable[T], keySel func(T) K) (map[K]T, error) {
	return toMap(ctx, q, keySel, nil)
}

// ToMapFoldedAsync is ToMapAsync with keys canonicalized through fold
// before insertion. Two keys folding to the same canonical form collide.
func ToMapFoldedAsync[T any, K comparable](ctx context.Context, q *Queryable[T], keySel func(T) K, fold KeyFolder[K]) (map[K]T, error) {
	if fold == nil {
		return nil, invalidArg("ToMap", "key folder is nil")
	}
	return toMap(ctx, q, keySel, fold)
}

// toMap drives the same element stream ToSliceAsync would (enumerator when
// available, synchronous materialization otherwise) and folds keys itself,
// so duplicate-key behavior is identical on both paths.
func toMap[T any, K comparable](ctx context.Context, q *Queryable[T], keySel func(T) K, fold KeyFolder[K]) (map[K]T, error) {
	if keySel == nil {
		return nil, invalidArg("ToMap", "key selector is nil")
	}
	out := make(map[K]T)
	insert := func(item T) error {
		k := keySel(item)
		if fold != nil {
			k = fold.Fold(k)
		}
		if _, dup := out[k]; dup {
			return qerr.New(qerr.CodeDuplicateKey, "ToMap", "duplicate key %v", k)
		}
		out[k] = item
		return nil
	}

	if en, ok := q.provider.(AsyncEnumerable); ok {
		e, err := en.ExecuteEnumerator(ctx, q.exp)
		if err != nil {
			return nil, err
		}
		defer e.Close()
		for {
			more, err := e.Next(ctx)
			if err != nil {
				return nil, err
			}
			if !more {
				return out, nil
			}
			item, err := retype[T](expr.OpToSlice, e.Current())
			if err != nil {
				return nil, err
			}
			if err := insert(item); err != nil {
				return nil, err
			}
		}
	}

	items, err := execValue[[]T](ctx, q.provider, sourceCall[T](expr.OpToSlice, q.exp))
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := insert(item); err != nil {
			return nil, err
		}
	}
	return out, nil
}
