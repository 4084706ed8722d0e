// Package optional distinguishes an absent JSON field from an explicit null.
package optional

import (
	"bytes"
	"encoding/json"
)

// Value holds a field decoded from a sparse JSON document. Set reports whether
// the key was present at all; Null reports whether it was present as null.
type Value[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Of[T any](v T) Value[T] {
	return Value[T]{Set: true, Value: v}
}

func Null[T any]() Value[T] {
	return Value[T]{Set: true, Null: true}
}

// Present reports whether the field carries a non-null value.
func (v Value[T]) Present() bool {
	return v.Set && !v.Null
}

// UnmarshalJSON is only invoked for keys present in the document.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	v.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.Null = true
		var zero T
		v.Value = zero
		return nil
	}
	v.Null = false
	return json.Unmarshal(data, &v.Value)
}

func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(v.Value)
}
