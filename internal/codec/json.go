// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// MarshalJSON renders v for logs and diagnostics. Map keys that are not
// strings are rendered through their own JSON text; non-finite floats are
// rendered as strings because JSON has no literal for them.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInt32, KindInt64:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat64:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return writeJSONString(buf, strconv.FormatFloat(v.f, 'g', -1, 64))
		}
		b, err := json.Marshal(v.f)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		return writeJSONString(buf, v.s)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, e := range v.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, ok := e.Key.AsString()
			if !ok {
				key = e.Key.String()
			}
			if err := writeJSONString(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSON(buf, e.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, v.kind)
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
