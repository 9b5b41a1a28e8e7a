// Package sqliteq is an asynchronous-capable sequent provider backed by
// SQLite.
//
// Call expressions over a table sequence are compiled to parameterized SQL
// and executed against the database; results stream back through the
// asynchronous enumerator contract, wrapping the underlying row cursor.
// Operations whose arguments cannot be expressed in SQL but can still be
// computed in-process (aggregate folds, comparer-based containment) are
// served by materializing the source rows and delegating to the shared
// in-process evaluator, so their edge-case and error semantics match the
// local execution path exactly. Predicates built from opaque Go closures
// cannot be served at all and fail with NOT_TRANSLATABLE.
//
// Every generated query carries ORDER BY rowid so result order is
// deterministic across runs.
package sqliteq
