package sequent

import (
	"fmt"
	"reflect"

	"golang.org/x/text/unicode/norm"
)

// Equaler is a caller-supplied equality comparer for Contains and
// SequenceEqual variants.
type Equaler[T any] interface {
	Equal(a, b T) bool
}

// EqualerFunc adapts a function to the Equaler interface.
type EqualerFunc[T any] func(a, b T) bool

// Equal implements Equaler.
func (f EqualerFunc[T]) Equal(a, b T) bool { return f(a, b) }

// NFCStringEqualer compares strings under NFC normalization, so composed
// and decomposed spellings of the same text compare equal.
type NFCStringEqualer struct{}

// Equal implements Equaler[string].
func (NFCStringEqualer) Equal(a, b string) bool {
	return norm.NFC.String(a) == norm.NFC.String(b)
}

// KeyFolder canonicalizes keys before insertion into a keyed mapping. Two
// keys folding to the same canonical form are treated as the same key, and
// colliding inserts fail rather than overwrite.
type KeyFolder[K comparable] interface {
	Fold(K) K
}

// NFCKeyFolder folds string keys to NFC normal form.
type NFCKeyFolder struct{}

// Fold implements KeyFolder[string].
func (NFCKeyFolder) Fold(k string) string { return norm.NFC.String(k) }

// equalerAdapter erases an Equaler's type so it can travel inside a call
// expression as a constant. Execution paths call EqualAny with the actual
// element values.
type equalerAdapter[T any] struct {
	eq Equaler[T]
}

func (a equalerAdapter[T]) EqualAny(x, y any) bool {
	return a.eq.Equal(coerceValue[T](x), coerceValue[T](y))
}

func coerceValue[T any](v any) T {
	if t, ok := v.(T); ok {
		return t
	}
	rv := reflect.ValueOf(v)
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if rv.IsValid() && rv.Type().ConvertibleTo(rt) {
		return rv.Convert(rt).Interface().(T)
	}
	panic(fmt.Sprintf("sequent: comparer received %T, want %s", v, rt))
}
