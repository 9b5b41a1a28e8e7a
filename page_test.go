package sequent

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sequent/expr"
	"github.com/roach88/sequent/qerr"
)

func rangeInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPageOf_RejectsBadArguments(t *testing.T) {
	ctx := context.Background()
	p := &syncProvider{}
	q := fromWith(p, rangeInts(5))

	_, err := PageOf(ctx, q, 0, 10)
	assert.True(t, qerr.IsInvalidArgument(err))

	_, err = PageOf(ctx, q, -3, 10)
	assert.True(t, qerr.IsInvalidArgument(err))

	_, err = PageOf(ctx, q, 1, -1)
	assert.True(t, qerr.IsInvalidArgument(err))

	// Validation happens before any provider round trip.
	assert.Zero(t, p.executes)
}

func TestPageOf_OffsetOverflowRejected(t *testing.T) {
	ctx := context.Background()
	p := &syncProvider{}
	q := fromWith(p, rangeInts(5))

	_, err := PageOf(ctx, q, math.MaxInt32, 2)
	assert.True(t, qerr.IsInvalidArgument(err))
	assert.Zero(t, p.executes)
}

func TestPageOf_ZeroPageSizeCountsOnly(t *testing.T) {
	ctx := context.Background()
	p := &syncProvider{}
	q := fromWith(p, rangeInts(15))

	page, err := PageOf(ctx, q, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Offset)
	assert.Equal(t, 15, page.Total)
	assert.Equal(t, 1, p.executes)
}

// A short non-empty page proves it is the last one, so the total is
// inferred from the offset and no count query runs.
func TestPageOf_PartialPageInfersTotal(t *testing.T) {
	ctx := context.Background()
	p := &syncProvider{}
	q := fromWith(p, rangeInts(15))

	page, err := PageOf(ctx, q, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{11, 12, 13, 14, 15}, page.Items)
	assert.Equal(t, 10, page.Offset)
	assert.Equal(t, 15, page.Total)
	assert.Equal(t, 1, p.executes)
}

// A full page cannot prove it was the last, so a count query follows the
// fetch.
func TestPageOf_FullPageTriggersCount(t *testing.T) {
	ctx := context.Background()
	p := &syncProvider{}
	q := fromWith(p, rangeInts(15))

	page, err := PageOf(ctx, q, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, rangeInts(10), page.Items)
	assert.Zero(t, page.Offset)
	assert.Equal(t, 15, page.Total)
	assert.Equal(t, 2, p.executes)
}

// The last page being exactly full still comes back full, so the count
// query still runs.
func TestPageOf_ExactFinalPageStillCounts(t *testing.T) {
	ctx := context.Background()
	p := &syncProvider{}
	q := fromWith(p, rangeInts(20))

	page, err := PageOf(ctx, q, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, page.Items)
	assert.Equal(t, 20, page.Total)
	assert.Equal(t, 2, p.executes)
}

// An empty page past the first is ambiguous (past the end, or an empty
// source), so the total comes from a count query.
func TestPageOf_EmptyDeepPageTriggersCount(t *testing.T) {
	ctx := context.Background()
	p := &syncProvider{}
	q := fromWith(p, rangeInts(15))

	page, err := PageOf(ctx, q, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 20, page.Offset)
	assert.Equal(t, 15, page.Total)
	assert.Equal(t, 2, p.executes)
}

// An empty first page means an empty source: total 0, no count query.
func TestPageOf_EmptyFirstPageInfersZero(t *testing.T) {
	ctx := context.Background()
	p := &syncProvider{}
	q := fromWith(p, []int{})

	page, err := PageOf(ctx, q, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Offset)
	assert.Zero(t, page.Total)
	assert.Equal(t, 1, p.executes)
}

func TestPageOf_FilteredPagination(t *testing.T) {
	ctx := context.Background()
	n := expr.NewParam[int]("n")
	q := From(rangeInts(30)).Where(expr.Predicate(expr.E(n).Gt(expr.Const(10)), n))

	page, err := PageOf(ctx, q, 2, 8)
	require.NoError(t, err)
	// Elements > 10 are 11..30; page 2 of size 8 is 19..26.
	assert.Equal(t, []int{19, 20, 21, 22, 23, 24, 25, 26}, page.Items)
	assert.Equal(t, 8, page.Offset)
	assert.Equal(t, 20, page.Total)
}
