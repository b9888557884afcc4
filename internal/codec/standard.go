// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

var (
	ErrMalformed       = errors.New("malformed message")
	ErrUnsupportedType = errors.New("unsupported value type")
)

// Wire type tags of the standard message codec.
const (
	tagNull    byte = 0
	tagTrue    byte = 1
	tagFalse   byte = 2
	tagInt32   byte = 3
	tagInt64   byte = 4
	tagFloat64 byte = 6
	tagString  byte = 7
	tagList    byte = 12
	tagMap     byte = 13
)

// reservedTag reports tags the codec defines but this package does not
// decode: big integers and the typed data lists.
func reservedTag(t byte) bool {
	switch t {
	case 5, 8, 9, 10, 11, 14:
		return true
	}
	return false
}

// maxDepth bounds nesting on decode.
const maxDepth = 64

// Marshal encodes v with the standard message codec.
func Marshal(v Value) ([]byte, error) {
	buf := make([]byte, 0, 64)
	return appendValue(buf, v)
}

func appendValue(buf []byte, v Value) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(buf, tagNull), nil
	case KindBool:
		if v.b {
			return append(buf, tagTrue), nil
		}
		return append(buf, tagFalse), nil
	case KindInt32:
		buf = append(buf, tagInt32)
		return binary.LittleEndian.AppendUint32(buf, uint32(int32(v.i))), nil
	case KindInt64:
		buf = append(buf, tagInt64)
		return binary.LittleEndian.AppendUint64(buf, uint64(v.i)), nil
	case KindFloat64:
		buf = append(buf, tagFloat64)
		buf = pad(buf, 8)
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.f)), nil
	case KindString:
		if !utf8.ValidString(v.s) {
			return nil, fmt.Errorf("%w: string is not valid utf-8", ErrUnsupportedType)
		}
		buf = append(buf, tagString)
		buf = appendSize(buf, len(v.s))
		return append(buf, v.s...), nil
	case KindList:
		buf = append(buf, tagList)
		buf = appendSize(buf, len(v.list))
		var err error
		for _, item := range v.list {
			if buf, err = appendValue(buf, item); err != nil {
				return nil, err
			}
		}
		return buf, nil
	case KindMap:
		buf = append(buf, tagMap)
		buf = appendSize(buf, len(v.entries))
		var err error
		for _, e := range v.entries {
			if buf, err = appendValue(buf, e.Key); err != nil {
				return nil, err
			}
			if buf, err = appendValue(buf, e.Value); err != nil {
				return nil, err
			}
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, v.kind)
	}
}

func appendSize(buf []byte, n int) []byte {
	switch {
	case n < 254:
		return append(buf, byte(n))
	case n <= math.MaxUint16:
		buf = append(buf, 254)
		return binary.LittleEndian.AppendUint16(buf, uint16(n))
	default:
		buf = append(buf, 255)
		return binary.LittleEndian.AppendUint32(buf, uint32(n))
	}
}

// pad aligns the next write to a multiple of alignment, measured from the
// start of the message.
func pad(buf []byte, alignment int) []byte {
	for len(buf)%alignment != 0 {
		buf = append(buf, 0)
	}
	return buf
}

// Unmarshal decodes exactly one value; trailing bytes are rejected.
func Unmarshal(data []byte) (Value, error) {
	r := &reader{buf: data}
	v, err := r.value(0)
	if err != nil {
		return Value{}, err
	}
	if r.pos != len(r.buf) {
		return Value{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(r.buf)-r.pos)
	}
	return v, nil
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || len(r.buf)-r.pos < n {
		return nil, fmt.Errorf("%w: truncated at offset %d", ErrMalformed, r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) align(alignment int) error {
	if rem := r.pos % alignment; rem != 0 {
		_, err := r.take(alignment - rem)
		return err
	}
	return nil
}

func (r *reader) size() (int, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	switch b[0] {
	case 254:
		s, err := r.take(2)
		if err != nil {
			return 0, err
		}
		return int(binary.LittleEndian.Uint16(s)), nil
	case 255:
		s, err := r.take(4)
		if err != nil {
			return 0, err
		}
		n := binary.LittleEndian.Uint32(s)
		if int64(n) > int64(len(r.buf)) {
			return 0, fmt.Errorf("%w: size %d exceeds message", ErrMalformed, n)
		}
		return int(n), nil
	default:
		return int(b[0]), nil
	}
}

func (r *reader) value(depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, maxDepth)
	}
	t, err := r.take(1)
	if err != nil {
		return Value{}, err
	}
	switch t[0] {
	case tagNull:
		return Null(), nil
	case tagTrue:
		return Bool(true), nil
	case tagFalse:
		return Bool(false), nil
	case tagInt32:
		b, err := r.take(4)
		if err != nil {
			return Value{}, err
		}
		return Int32(int32(binary.LittleEndian.Uint32(b))), nil
	case tagInt64:
		b, err := r.take(8)
		if err != nil {
			return Value{}, err
		}
		return Int64(int64(binary.LittleEndian.Uint64(b))), nil
	case tagFloat64:
		if err := r.align(8); err != nil {
			return Value{}, err
		}
		b, err := r.take(8)
		if err != nil {
			return Value{}, err
		}
		return Float64(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case tagString:
		n, err := r.size()
		if err != nil {
			return Value{}, err
		}
		b, err := r.take(n)
		if err != nil {
			return Value{}, err
		}
		if !utf8.Valid(b) {
			return Value{}, fmt.Errorf("%w: invalid utf-8 string", ErrMalformed)
		}
		return String(string(b)), nil
	case tagList:
		n, err := r.size()
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, 0, min(n, 256))
		for i := 0; i < n; i++ {
			item, err := r.value(depth + 1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{kind: KindList, list: items}, nil
	case tagMap:
		n, err := r.size()
		if err != nil {
			return Value{}, err
		}
		entries := make([]Entry, 0, min(n, 256))
		for i := 0; i < n; i++ {
			k, err := r.value(depth + 1)
			if err != nil {
				return Value{}, err
			}
			v, err := r.value(depth + 1)
			if err != nil {
				return Value{}, err
			}
			entries = append(entries, Entry{Key: k, Value: v})
		}
		return Value{kind: KindMap, entries: entries}, nil
	default:
		if reservedTag(t[0]) {
			return Value{}, fmt.Errorf("%w: tag %d", ErrUnsupportedType, t[0])
		}
		return Value{}, fmt.Errorf("%w: unknown tag %d", ErrMalformed, t[0])
	}
}
