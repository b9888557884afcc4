// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package codec

// Fields is a permissive read view over a map Value.
//
// Decode-or-default policy: a non-map source, an absent key or a key holding
// a different kind all yield the zero value of the requested type. Callers
// decoding request records must go through Fields so the policy stays uniform.
type Fields struct {
	src Value
}

// Lenient wraps v for permissive field access. It never fails.
func Lenient(v Value) Fields {
	return Fields{src: v}
}

// Int64 accepts both 32- and 64-bit integer representations.
func (f Fields) Int64(key string) int64 {
	v, ok := f.src.Lookup(key)
	if !ok {
		return 0
	}
	i, _ := v.AsInt()
	return i
}

func (f Fields) Bool(key string) bool {
	v, ok := f.src.Lookup(key)
	if !ok {
		return false
	}
	b, _ := v.AsBool()
	return b
}

func (f Fields) Float64(key string) float64 {
	v, ok := f.src.Lookup(key)
	if !ok {
		return 0
	}
	x, _ := v.AsFloat64()
	return x
}

func (f Fields) String(key string) string {
	v, ok := f.src.Lookup(key)
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}

// Has reports whether key is present, regardless of its kind.
func (f Fields) Has(key string) bool {
	_, ok := f.src.Lookup(key)
	return ok
}
