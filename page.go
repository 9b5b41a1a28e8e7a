package sequent

import (
	"context"
	"math"
)

// Page is one page of results plus its position within the full result
// set. It is created fresh per fetch, holds no reference to the source
// sequence, and is immutable by convention.
type Page[T any] struct {
	// Items holds the page's results, at most the requested page size.
	Items []T
	// Offset is the zero-based offset of Items within the full result set.
	Offset int
	// Total is the number of items in the full result set.
	Total int
}

// PageOf fetches one page of q given a 1-based page number and a page
// size, returning the page alongside the total count of the full result
// set.
//
// When the fetched page comes back short, and either it is non-empty or
// this is page 1, it must be the final (or only) page, so the total is
// inferred as offset plus items returned and no count query is issued. A
// full page (or an empty page deeper than page 1) cannot prove it was the
// last, so a separate count query runs. Landing on the last page therefore
// costs one provider round trip instead of two.
//
// A short page 1 with zero items is inferred as total 0. That assumes the
// source truly is empty; a downstream filter transiently yielding nothing
// is indistinguishable from an empty source here.
//
// pageNumber < 1, pageSize < 0, or an offset that would exceed the 32-bit
// signed range are rejected before anything executes. pageSize == 0 skips
// the page fetch entirely and returns only the total.
func PageOf[T any](ctx context.Context, q *Queryable[T], pageNumber, pageSize int) (*Page[T], error) {
	if pageNumber < 1 {
		return nil, invalidArg("PageOf", "page number %d out of range, must be >= 1", pageNumber)
	}
	if pageSize < 0 {
		return nil, invalidArg("PageOf", "page size %d out of range, must be >= 0", pageSize)
	}

	if pageSize == 0 {
		total, err := CountAsync(ctx, q)
		if err != nil {
			return nil, err
		}
		return &Page[T]{Items: nil, Offset: 0, Total: total}, nil
	}

	// Guard the multiplication before performing it: a page number large
	// enough to push the offset past the 32-bit signed range must not wrap.
	if pageNumber-1 > math.MaxInt32/pageSize {
		return nil, invalidArg("PageOf", "page number %d out of range for page size %d", pageNumber, pageSize)
	}
	offset := (pageNumber - 1) * pageSize

	items, err := ToSliceAsync(ctx, q.Skip(offset).Take(pageSize))
	if err != nil {
		return nil, err
	}

	if len(items) < pageSize && (len(items) > 0 || pageNumber == 1) {
		// Final partial (or only) page: the total falls out of the fetch.
		return &Page[T]{Items: items, Offset: offset, Total: offset + len(items)}, nil
	}

	total, err := CountAsync(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Page[T]{Items: items, Offset: offset, Total: total}, nil
}
