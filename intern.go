package pegc

import (
	"encoding/json"
	"fmt"
)

// Interner is a deduplicating table of values.  Values are stored in
// insertion order and identified by their index, which is what the
// bytecode uses to reference constants.
//
// Inputs go through `convert` before being stored.  When it reports
// no value, nothing is stored and Add returns -1.  Two values are the
// same when `stringify` returns the same key for both.
type Interner[I, V any] struct {
	values    []V
	index     map[string]int
	convert   func(I) (V, bool)
	stringify func(V) string
}

// NewInterner creates an interner with custom conversion and
// stringification policies.  Nil policies are not allowed, see
// NewValueInterner for the common case.
func NewInterner[I, V any](convert func(I) (V, bool), stringify func(V) string) *Interner[I, V] {
	return &Interner[I, V]{
		index:     make(map[string]int),
		convert:   convert,
		stringify: stringify,
	}
}

// NewValueInterner creates an interner that stores inputs as they
// are and compares them by their canonical JSON encoding.  Zero
// values are treated as absent.
func NewValueInterner[V comparable]() *Interner[V, V] {
	return NewInterner(
		func(v V) (V, bool) {
			var zero V
			return v, v != zero
		},
		jsonKey[V],
	)
}

// jsonKey is the default stringification policy.  Values that can't
// be encoded fall back to their Go syntax representation.
func jsonKey[V any](v V) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}

// Add stores `input` unless an equivalent value was stored before,
// and returns its index.
func (in *Interner[I, V]) Add(input I) int {
	v, ok := in.convert(input)
	if !ok {
		return -1
	}
	key := in.stringify(v)
	if i, ok := in.index[key]; ok {
		return i
	}
	i := len(in.values)
	in.values = append(in.values, v)
	in.index[key] = i
	return i
}

// Get returns the value stored at `i`.  The second return value is
// false when `i` is out of range.
func (in *Interner[I, V]) Get(i int) (V, bool) {
	if i < 0 || i >= len(in.values) {
		var zero V
		return zero, false
	}
	return in.values[i], true
}

// Len returns how many values are stored
func (in *Interner[I, V]) Len() int { return len(in.values) }

// Values returns the stored values in index order
func (in *Interner[I, V]) Values() []V {
	return append([]V(nil), in.values...)
}
