package expr

import (
	"fmt"
	"reflect"
)

// Op enumerates every operation a Call node may invoke.
//
// The set is closed: providers dispatch on it with exhaustive switches, and
// the registry below records the shape each operation requires. Composition
// operations produce a new sequence; terminal operations produce a scalar,
// an element, or a materialized container.
type Op int

const (
	// Composition operations.
	OpWhere Op = iota + 1
	OpSelect
	OpSkip
	OpTake
	OpGroupJoin
	OpSelectMany
	OpDefaultIfEmpty

	// Terminal, single-result operations.
	OpCount
	OpLongCount
	OpSum
	OpAverage
	OpMin
	OpMax
	OpAggregate
	OpAny
	OpAll
	OpSingle
	OpSingleOrDefault
	OpFirst
	OpFirstOrDefault
	OpLast
	OpLastOrDefault
	OpElementAt
	OpElementAtOrDefault
	OpContains
	OpSequenceEqual

	// Terminal, sequence-materializing. ToSlice is the only materializing
	// Call shape: keyed-mapping construction happens client-side in the
	// dispatcher, which drives an enumerator (or a synchronous ToSlice) and
	// folds keys itself.
	OpToSlice
)

var opNames = map[Op]string{
	OpWhere:              "Where",
	OpSelect:             "Select",
	OpSkip:               "Skip",
	OpTake:               "Take",
	OpGroupJoin:          "GroupJoin",
	OpSelectMany:         "SelectMany",
	OpDefaultIfEmpty:     "DefaultIfEmpty",
	OpCount:              "Count",
	OpLongCount:          "LongCount",
	OpSum:                "Sum",
	OpAverage:            "Average",
	OpMin:                "Min",
	OpMax:                "Max",
	OpAggregate:          "Aggregate",
	OpAny:                "Any",
	OpAll:                "All",
	OpSingle:             "Single",
	OpSingleOrDefault:    "SingleOrDefault",
	OpFirst:              "First",
	OpFirstOrDefault:     "FirstOrDefault",
	OpLast:               "Last",
	OpLastOrDefault:      "LastOrDefault",
	OpElementAt:          "ElementAt",
	OpElementAtOrDefault: "ElementAtOrDefault",
	OpContains:           "Contains",
	OpSequenceEqual:      "SequenceEqual",
	OpToSlice:            "ToSlice",
}

// String returns the operation name.
func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// signature records the shape a Call for one operation must have: how many
// generic type arguments it binds and how many arguments (source included)
// it accepts. Optional trailing arguments (predicates, comparers, defaults)
// widen the argument range.
type signature struct {
	minTypes, maxTypes int
	minArgs, maxArgs   int
}

// signatures is the operation registry. It is populated once at package
// init and read-only afterward, so concurrent NewCall callers need no
// locking.
var signatures = map[Op]signature{
	OpWhere:              {1, 1, 2, 2},
	OpSelect:             {2, 2, 2, 2},
	OpSkip:               {1, 1, 2, 2},
	OpTake:               {1, 1, 2, 2},
	OpGroupJoin:          {4, 4, 5, 5},
	OpSelectMany:         {3, 3, 3, 3},
	OpDefaultIfEmpty:     {1, 1, 1, 2},
	OpCount:              {1, 1, 1, 2},
	OpLongCount:          {1, 1, 1, 2},
	OpSum:                {1, 2, 1, 2},
	OpAverage:            {1, 2, 1, 2},
	OpMin:                {1, 2, 1, 2},
	OpMax:                {1, 2, 1, 2},
	OpAggregate:          {1, 3, 2, 4},
	OpAny:                {1, 1, 1, 2},
	OpAll:                {1, 1, 2, 2},
	OpSingle:             {1, 1, 1, 2},
	OpSingleOrDefault:    {1, 1, 1, 2},
	OpFirst:              {1, 1, 1, 2},
	OpFirstOrDefault:     {1, 1, 1, 2},
	OpLast:               {1, 1, 1, 2},
	OpLastOrDefault:      {1, 1, 1, 2},
	OpElementAt:          {1, 1, 2, 2},
	OpElementAtOrDefault: {1, 1, 2, 2},
	OpContains:           {1, 1, 2, 3},
	OpSequenceEqual:      {1, 1, 2, 3},
	OpToSlice:            {1, 1, 1, 1},
}

// NewCall constructs a Call node for op, validating the type-argument and
// argument arity against the operation registry.
//
// An arity mismatch is a programming error in the caller, not a runtime
// condition: NewCall panics rather than returning an error, so a bad call
// shape fails at the call site instead of surfacing later inside a
// provider.
func NewCall(op Op, typeArgs []reflect.Type, args ...Expression) *Call {
	sig, ok := signatures[op]
	if !ok {
		panic(fmt.Sprintf("expr: unknown operation %v", op))
	}
	if len(typeArgs) < sig.minTypes || len(typeArgs) > sig.maxTypes {
		panic(fmt.Sprintf("expr: %v expects %s type arguments, got %d",
			op, rangeString(sig.minTypes, sig.maxTypes), len(typeArgs)))
	}
	if len(args) < sig.minArgs || len(args) > sig.maxArgs {
		panic(fmt.Sprintf("expr: %v expects %s arguments, got %d",
			op, rangeString(sig.minArgs, sig.maxArgs), len(args)))
	}
	for i, a := range args {
		if a == nil {
			panic(fmt.Sprintf("expr: %v argument %d is nil", op, i))
		}
	}
	for i, t := range typeArgs {
		if t == nil {
			panic(fmt.Sprintf("expr: %v type argument %d is nil", op, i))
		}
	}
	return &Call{Op: op, TypeArgs: typeArgs, Args: args}
}

func rangeString(lo, hi int) string {
	if lo == hi {
		return fmt.Sprintf("%d", lo)
	}
	return fmt.Sprintf("%d..%d", lo, hi)
}
