package sequent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sequent/expr"
	"github.com/roach88/sequent/qerr"
)

func TestCount_PlainAndFiltered(t *testing.T) {
	ctx := context.Background()
	q := From(people)

	n, err := CountAsync(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = CountWhereAsync(ctx, q, agePred(18))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	long, err := LongCountAsync(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(4), long)
}

func TestSum_EmptySumsToZero(t *testing.T) {
	ctx := context.Background()

	sum, err := SumAsync(ctx, From([]int{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, 6, sum)

	sum, err = SumAsync(ctx, From([]int{}))
	require.NoError(t, err)
	assert.Zero(t, sum)

	f, err := SumAsync(ctx, From([]float64{0.5, 1.5}))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, f, 1e-9)
}

func TestSumNullable_SkipsAbsent(t *testing.T) {
	ctx := context.Background()
	one, three := 1, 3

	sum, err := SumNullableAsync(ctx, From([]*int{&one, nil, &three}))
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, 4, *sum)

	// All-absent still sums to zero, present as a value.
	sum, err = SumNullableAsync(ctx, From([]*int{nil, nil}))
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Zero(t, *sum)
}

func TestSumSelect_ProjectsFirst(t *testing.T) {
	sum, err := SumSelectAsync[person, int](context.Background(), From(people),
		expr.FieldSelector[person]("Age"))
	require.NoError(t, err)
	assert.Equal(t, 105, sum)
}

func TestAverage_EmptyIsNoElements(t *testing.T) {
	ctx := context.Background()

	avg, err := AverageAsync(ctx, From([]int{1, 2, 3, 4}))
	require.NoError(t, err)
	assert.InDelta(t, 2.5, avg, 1e-9)

	_, err = AverageAsync(ctx, From([]int{}))
	require.Error(t, err)
	assert.True(t, qerr.IsNoElements(err))
}

func TestAverageNullable_AbsentInputsYieldAbsentAverage(t *testing.T) {
	ctx := context.Background()
	two, four := 2, 4

	avg, err := AverageNullableAsync(ctx, From([]*int{&two, nil, &four}))
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 3.0, *avg, 1e-9)

	avg, err = AverageNullableAsync(ctx, From([]*int{nil, nil}))
	require.NoError(t, err)
	assert.Nil(t, avg)

	avg, err = AverageNullableAsync(ctx, From([]*int{}))
	require.NoError(t, err)
	assert.Nil(t, avg)
}

func TestMinMax(t *testing.T) {
	ctx := context.Background()

	lo, err := MinAsync(ctx, From([]int{5, 2, 9}))
	require.NoError(t, err)
	assert.Equal(t, 2, lo)

	hi, err := MaxAsync(ctx, From([]string{"pear", "apple", "quince"}))
	require.NoError(t, err)
	assert.Equal(t, "quince", hi)

	_, err = MinAsync(ctx, From([]int{}))
	require.Error(t, err)
	assert.True(t, qerr.IsNoElements(err))

	age, err := MaxSelectAsync[person, int](ctx, From(people), expr.FieldSelector[person]("Age"))
	require.NoError(t, err)
	assert.Equal(t, 41, age)
}

func TestAggregate_Variants(t *testing.T) {
	ctx := context.Background()
	q := From([]int{1, 2, 3, 4})

	product, err := AggregateAsync(ctx, q, func(a, b int) int { return a * b })
	require.NoError(t, err)
	assert.Equal(t, 24, product)

	_, err = AggregateAsync(ctx, From([]int{}), func(a, b int) int { return a + b })
	require.Error(t, err)
	assert.True(t, qerr.IsNoElements(err))

	// Seeded fold tolerates an empty sequence.
	sum, err := AggregateSeedAsync(ctx, From([]int{}), 10, func(acc, n int) int { return acc + n })
	require.NoError(t, err)
	assert.Equal(t, 10, sum)

	joined, err := AggregateSeedResultAsync(ctx, From([]int{1, 2, 3}), "",
		func(acc string, n int) string {
			if acc == "" {
				return string(rune('0' + n))
			}
			return acc + "," + string(rune('0'+n))
		},
		func(acc string) string { return "[" + acc + "]" })
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]", joined)
}

func TestAnyAll(t *testing.T) {
	ctx := context.Background()
	q := From(people)

	any, err := AnyAsync(ctx, q)
	require.NoError(t, err)
	assert.True(t, any)

	any, err = AnyAsync(ctx, From([]person{}))
	require.NoError(t, err)
	assert.False(t, any)

	any, err = AnyWhereAsync(ctx, q, agePred(40))
	require.NoError(t, err)
	assert.True(t, any)

	all, err := AllAsync(ctx, q, agePred(18))
	require.NoError(t, err)
	assert.False(t, all)

	// All over an empty sequence is vacuously true.
	all, err = AllAsync(ctx, From([]person{}), agePred(18))
	require.NoError(t, err)
	assert.True(t, all)
}
