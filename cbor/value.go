package cbor

import (
	"bytes"
)

// Value is a decoded CBOR data item: Int, Bytes, Text, Array, Map, Bool,
// Null, Float or Tag. The set is closed.
type Value interface {
	isValue()
}

type Int int64

type Bytes []byte

type Text string

type Array []Value

// Map keeps pairs in encoding order
type Map []Pair

type Pair struct {
	Key   Value
	Value Value
}

type Bool bool

type Null struct{}

type Float float64

// Tag is only produced for tags the decoder keeps, which is the COSE_Sign1
// tag. Other tags are transparent.
type Tag struct {
	Number  uint64
	Content Value
}

func (Int) isValue()   {}
func (Bytes) isValue() {}
func (Text) isValue()  {}
func (Array) isValue() {}
func (Map) isValue()   {}
func (Bool) isValue()  {}
func (Null) isValue()  {}
func (Float) isValue() {}
func (Tag) isValue()   {}

// Get returns the value stored under key. With duplicate keys the last one
// wins.
func (m Map) Get(key Value) (Value, bool) {
	for i := len(m) - 1; i >= 0; i-- {
		if keyEqual(m[i].Key, key) {
			return m[i].Value, true
		}
	}

	return nil, false
}

// Distinct resolves repeated keys: one pair per key, in order of first
// appearance, holding the value Get returns
func (m Map) Distinct() Map {
	distinct := make(Map, 0, len(m))
	for _, pair := range m {
		repeated := false
		for i := range distinct {
			if keyEqual(distinct[i].Key, pair.Key) {
				distinct[i].Value = pair.Value
				repeated = true
				break
			}
		}

		if !repeated {
			distinct = append(distinct, pair)
		}
	}

	return distinct
}

func (m Map) Int(key int64) (Value, bool) {
	return m.Get(Int(key))
}

func (m Map) Text(key string) (Value, bool) {
	return m.Get(Text(key))
}

func keyEqual(a, b Value) bool {
	switch a := a.(type) {
	case Bytes:
		bb, ok := b.(Bytes)
		return ok && bytes.Equal(a, bb)
	case Int, Text, Bool, Null, Float:
		return a == b
	}

	return false
}

// TypeName describes the shape of v for error messages
func TypeName(v Value) string {
	switch v.(type) {
	case Int:
		return "integer"
	case Bytes:
		return "byte string"
	case Text:
		return "text string"
	case Array:
		return "array"
	case Map:
		return "map"
	case Bool:
		return "boolean"
	case Null:
		return "null"
	case Float:
		return "float"
	case Tag:
		return "tag"
	case nil:
		return "nothing"
	}

	return "unknown"
}
