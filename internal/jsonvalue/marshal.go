package jsonvalue

import (
	"bytes"
	"encoding/json"
)

// Marshal serializes v as compact JSON. Numbers are written as they were
// parsed and HTML characters are left unescaped.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	out := make([]byte, 0, 64)
	out, err := appendValue(out, v, enc, &buf)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func appendValue(out []byte, v Value, enc *json.Encoder, scratch *bytes.Buffer) ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return append(out, "null"...), nil
	case KindBool:
		if v.Bool {
			return append(out, "true"...), nil
		}
		return append(out, "false"...), nil
	case KindNumber:
		if v.Raw == "" {
			v = Number(v.Number)
		}
		return append(out, v.Raw...), nil
	case KindString:
		return appendString(out, v.String, enc, scratch)
	case KindArray:
		out = append(out, '[')
		for i, elem := range v.Array {
			if i > 0 {
				out = append(out, ',')
			}
			var err error
			if out, err = appendValue(out, elem, enc, scratch); err != nil {
				return nil, err
			}
		}
		return append(out, ']'), nil
	case KindObject:
		out = append(out, '{')
		if v.Object != nil {
			for i, m := range v.Object.Members() {
				if i > 0 {
					out = append(out, ',')
				}
				var err error
				if out, err = appendString(out, m.Key, enc, scratch); err != nil {
					return nil, err
				}
				out = append(out, ':')
				if out, err = appendValue(out, m.Value, enc, scratch); err != nil {
					return nil, err
				}
			}
		}
		return append(out, '}'), nil
	default:
		return nil, &json.UnsupportedValueError{Str: v.Kind.String()}
	}
}

func appendString(out []byte, s string, enc *json.Encoder, scratch *bytes.Buffer) ([]byte, error) {
	scratch.Reset()
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return append(out, bytes.TrimSuffix(scratch.Bytes(), []byte{'\n'})...), nil
}
