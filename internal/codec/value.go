// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package codec implements the generic structured value carried on every
// command channel and message port, together with its binary wire format.
package codec

import (
	"fmt"
	"math"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindFloat64
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a closed tagged union. The zero Value is Null.
//
// Int32 only exists to carry the 32-bit wire representation; AsInt accepts
// both integer kinds and always yields an int64.
type Value struct {
	kind    Kind
	b       bool
	i       int64
	f       float64
	s       string
	list    []Value
	entries []Entry
}

// Entry is a single key/value pair of a map Value. Map order is preserved.
type Entry struct {
	Key   Value
	Value Value
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Int32(i int32) Value { return Value{kind: KindInt32, i: int64(i)} }
func Int64(i int64) Value { return Value{kind: KindInt64, i: i} }
func Float64(f float64) Value { return Value{kind: KindFloat64, f: f} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func List(items ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), items...)}
}

// NewMap builds a map Value from entries in the given order.
func NewMap(entries ...Entry) Value {
	return Value{kind: KindMap, entries: append([]Entry(nil), entries...)}
}

// Field is shorthand for a string-keyed map entry.
func Field(key string, v Value) Entry {
	return Entry{Key: String(key), Value: v}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInt returns the integer held by an Int32 or Int64 value.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt32 && v.kind != KindInt64 {
		return 0, false
	}
	return v.i, true
}

func (v Value) AsFloat64() (float64, bool) {
	if v.kind != KindFloat64 {
		return 0, false
	}
	return v.f, true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsList returns a copy of the list items.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]Value(nil), v.list...), true
}

// Entries returns a copy of the map entries in wire order.
func (v Value) Entries() ([]Entry, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return append([]Entry(nil), v.entries...), true
}

// Len reports the number of list items or map entries.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.entries)
	default:
		return 0
	}
}

// Lookup finds the value stored under a string key of a map Value.
// If a key occurs more than once the first occurrence wins.
func (v Value) Lookup(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	for _, e := range v.entries {
		if e.Key.kind == KindString && e.Key.s == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Equal reports structural equality. Int32 and Int64 are distinct kinds;
// floats compare bit-for-bit so NaN equals itself.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt32, KindInt64:
		return v.i == o.i
	case KindFloat64:
		return math.Float64bits(v.f) == math.Float64bits(o.f)
	case KindString:
		return v.s == o.s
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.entries) != len(o.entries) {
			return false
		}
		for i := range v.entries {
			if !v.entries[i].Key.Equal(o.entries[i].Key) || !v.entries[i].Value.Equal(o.entries[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s>", v.kind)
	}
	return string(b)
}
