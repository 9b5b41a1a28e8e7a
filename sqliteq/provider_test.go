package sqliteq

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sequent"
	"github.com/roach88/sequent/expr"
	"github.com/roach88/sequent/qerr"
)

type order struct {
	ID     int64 `db:"id"`
	UserID int64 `db:"user_id"`
	Item   string
}

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "sequent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	_, err = d.SQL().Exec(`
		CREATE TABLE users (
			id   INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			age  INTEGER NOT NULL,
			nick TEXT
		);
		CREATE TABLE orders (
			id      INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			item    TEXT NOT NULL
		);
	`)
	require.NoError(t, err)

	_, err = d.SQL().Exec(`
		INSERT INTO users (id, name, age, nick) VALUES
			(1, 'alice', 30, 'al'),
			(2, 'bob',   17, NULL),
			(3, 'carol', 41, 'cc'),
			(4, 'dave',  17, NULL);
		INSERT INTO orders (id, user_id, item) VALUES
			(1, 1, 'anvil'),
			(2, 1, 'rope'),
			(3, 3, 'dynamite');
	`)
	require.NoError(t, err)
	return d
}

func TestTable_ToSlice(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	got, err := sequent.ToSliceAsync(ctx, Table[user](d, "users"))
	require.NoError(t, err)
	require.Len(t, got, 4)

	al := "al"
	assert.Equal(t, user{ID: 1, Name: "alice", Age: 30, Nick: &al}, got[0])
	assert.Equal(t, "bob", got[1].Name)
	assert.Nil(t, got[1].Nick)
	assert.Equal(t, "dave", got[3].Name)
}

func TestTable_FilterAndWindow(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	adults := Table[user](d, "users").Where(ageGe(18))
	got, err := sequent.ToSliceAsync(ctx, adults.Skip(1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "carol", got[0].Name)
}

func TestTable_Projection(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	names, err := sequent.ToSliceAsync(ctx,
		sequent.Select[user, string](Table[user](d, "users"), expr.FieldSelector[user]("Name")))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, names)
}

func TestTable_Counts(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)
	q := Table[user](d, "users")

	n, err := sequent.CountAsync(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = sequent.CountWhereAsync(ctx, q, ageGe(18))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ln, err := sequent.LongCountAsync(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(4), ln)
}

func TestTable_NumericAggregates(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)
	q := Table[user](d, "users")
	ageSel := expr.FieldSelector[user]("Age")

	sum, err := sequent.SumSelectAsync[user, int](ctx, q, ageSel)
	require.NoError(t, err)
	assert.Equal(t, 105, sum)

	avg, err := sequent.AverageSelectAsync[user, int](ctx, q, ageSel)
	require.NoError(t, err)
	assert.InDelta(t, 26.25, avg, 1e-9)

	youngest, err := sequent.MinSelectAsync[user, int](ctx, q, ageSel)
	require.NoError(t, err)
	assert.Equal(t, 17, youngest)

	lastName, err := sequent.MaxSelectAsync[user, string](ctx, q, expr.FieldSelector[user]("Name"))
	require.NoError(t, err)
	assert.Equal(t, "dave", lastName)
}

// Aggregating an empty filtered sequence carries the same error code and
// message as the in-process evaluator.
func TestTable_AggregateEmptyMatchesLocal(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)
	nobody := Table[user](d, "users").Where(ageGe(200))

	_, dbErr := sequent.AverageSelectAsync[user, int](ctx, nobody, expr.FieldSelector[user]("Age"))
	_, localErr := sequent.AverageSelectAsync[user, int](ctx,
		sequent.From([]user{}), expr.FieldSelector[user]("Age"))

	require.Error(t, dbErr)
	require.Error(t, localErr)
	assert.True(t, qerr.IsNoElements(dbErr))

	var dq, lq *qerr.Error
	require.True(t, errors.As(dbErr, &dq))
	require.True(t, errors.As(localErr, &lq))
	assert.Equal(t, lq.Code, dq.Code)
	assert.Equal(t, lq.Message, dq.Message)
	assert.NotEmpty(t, dq.Token)
}

// A windowed aggregate has no single-query form; the provider materializes
// the window and folds in process instead.
func TestTable_WindowedAggregateDelegates(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	sum, err := sequent.SumSelectAsync[user, int](ctx,
		Table[user](d, "users").Skip(1), expr.FieldSelector[user]("Age"))
	require.NoError(t, err)
	assert.Equal(t, 75, sum)
}

func TestTable_PickTerminals(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)
	q := Table[user](d, "users")

	first, err := sequent.FirstAsync(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "alice", first.Name)

	last, err := sequent.LastAsync(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "dave", last.Name)

	carol, err := sequent.SingleWhereAsync(ctx, q, nameIs("carol"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), carol.ID)

	third, err := sequent.ElementAtAsync(ctx, q, 2)
	require.NoError(t, err)
	assert.Equal(t, "carol", third.Name)

	zero, err := sequent.ElementAtOrDefaultAsync(ctx, q, 10)
	require.NoError(t, err)
	assert.Equal(t, user{}, zero)
}

func TestTable_PickErrors(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)
	q := Table[user](d, "users")

	_, err := sequent.SingleAsync(ctx, q)
	assert.True(t, qerr.IsMultipleElements(err))
	var qe *qerr.Error
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "sequence contains more than one element", qe.Message)
	assert.NotEmpty(t, qe.Token)

	_, err = sequent.FirstWhereAsync(ctx, q, ageGe(200))
	assert.True(t, qerr.IsNoElements(err))
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "sequence contains no matching element", qe.Message)

	_, err = sequent.ElementAtAsync(ctx, q, 9)
	assert.True(t, qerr.IsIndexOutOfRange(err))
}

func TestTable_Quantifiers(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)
	q := Table[user](d, "users")

	has, err := sequent.AnyAsync(ctx, q)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = sequent.AnyWhereAsync(ctx, q, ageGe(100))
	require.NoError(t, err)
	assert.False(t, has)

	all, err := sequent.AllAsync(ctx, q, ageGe(17))
	require.NoError(t, err)
	assert.True(t, all)

	all, err = sequent.AllAsync(ctx, q, ageGe(18))
	require.NoError(t, err)
	assert.False(t, all)
}

// Caller folds have no SQL form; the rows materialize and the fold runs in
// process.
func TestTable_AggregateFold(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)
	q := Table[user](d, "users")

	total, err := sequent.AggregateSeedAsync(ctx, q, 0,
		func(acc int, u user) int { return acc + u.Age })
	require.NoError(t, err)
	assert.Equal(t, 105, total)
}

func TestTable_Contains(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)
	names := sequent.Select[user, string](Table[user](d, "users"), expr.FieldSelector[user]("Name"))

	ok, err := sequent.ContainsAsync(ctx, names, "carol")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sequent.ContainsAsync(ctx, names, "mallory")
	require.NoError(t, err)
	assert.False(t, ok)
}

// Closure predicates refuse to execute against the database, even via the
// materializing fallback.
func TestTable_ClosurePredicateRefused(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	_, err := sequent.ToSliceAsync(ctx,
		Table[user](d, "users").WhereFunc(func(u user) bool { return u.Age > 18 }))
	assert.True(t, qerr.IsNotTranslatable(err))

	var qe *qerr.Error
	require.True(t, errors.As(err, &qe))
	assert.NotEmpty(t, qe.Token)
}

// A join between two tables loads each side with one query and composes the
// result in process; every left row appears.
func TestTable_LeftJoin(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)

	type purchase struct {
		User string
		Item string
	}
	sel := &expr.Lambda{
		Params: []*expr.Parameter{expr.NewParam[user]("u"), expr.NewParam[order]("o")},
		Body:   expr.FuncOf(func(u user, o order) purchase { return purchase{User: u.Name, Item: o.Item} }),
	}

	q, err := sequent.LeftJoin[user, order, int64, purchase](
		Table[user](d, "users"), Table[order](d, "orders"),
		expr.FieldSelector[user]("ID"), expr.FieldSelector[order]("UserID"), sel)
	require.NoError(t, err)

	got, err := sequent.ToSliceAsync(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []purchase{
		{User: "alice", Item: "anvil"},
		{User: "alice", Item: "rope"},
		{User: "bob", Item: ""},
		{User: "carol", Item: "dynamite"},
		{User: "dave", Item: ""},
	}, got)
}

func TestTable_Pagination(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)
	q := Table[user](d, "users")

	page, err := sequent.PageOf(ctx, q, 2, 3)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "dave", page.Items[0].Name)
	assert.Equal(t, 3, page.Offset)
	assert.Equal(t, 4, page.Total)
}

func TestMapTable_DynamicRows(t *testing.T) {
	ctx := context.Background()
	d := testDB(t)
	q := MapTable(d, "users")

	row := expr.NewParam[map[string]any]("row")
	adults := q.Where(expr.Predicate(expr.E(row).Field("age").Ge(18), row))

	got, err := sequent.ToSliceAsync(ctx, adults)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0]["name"])
	assert.Equal(t, int64(30), got[0]["age"])
	assert.Equal(t, "carol", got[1]["name"])
	assert.Equal(t, "cc", got[1]["nick"])

	n, err := sequent.CountAsync(ctx, adults)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func nameIs(name string) *expr.Lambda {
	u := expr.NewParam[user]("u")
	return expr.Predicate(expr.E(u).Field("Name").Eq(name), u)
}
