package msgpack

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// ErrUnsupported is returned when the input holds a type outside the model,
// such as integers, binary data or extensions.
var ErrUnsupported = errors.New("unsupported msgpack type")

// Decode reads one value from r.
func Decode(r io.Reader) (Value, error) {
	return decodeValue(msgpack.NewDecoder(r))
}

// Unmarshal decodes data, which must hold exactly one value.
func Unmarshal(data []byte) (Value, error) {
	r := bytes.NewReader(data)
	v, err := Decode(r)
	if err != nil {
		return Value{}, err
	}
	if r.Len() != 0 {
		return Value{}, fmt.Errorf("%d trailing bytes after value", r.Len())
	}
	return v, nil
}

func decodeValue(dec *msgpack.Decoder) (Value, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return Value{}, err
	}

	switch {
	case c == msgpcode.Nil:
		if err := dec.DecodeNil(); err != nil {
			return Value{}, err
		}
		return Nil(), nil

	case c == msgpcode.False || c == msgpcode.True:
		b, err := dec.DecodeBool()
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil

	case c == msgpcode.Double || c == msgpcode.Float:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return Value{}, err
		}
		return Float64(f), nil

	case msgpcode.IsFixedString(c), c == msgpcode.Str8, c == msgpcode.Str16, c == msgpcode.Str32:
		s, err := dec.DecodeString()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil

	case msgpcode.IsFixedArray(c), c == msgpcode.Array16, c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return Value{}, err
		}
		elems := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			elem, err := decodeValue(dec)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, elem)
		}
		return Array(elems...), nil

	case msgpcode.IsFixedMap(c), c == msgpcode.Map16, c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return Value{}, err
		}
		pairs := make([]Pair, 0, n)
		for i := 0; i < n; i++ {
			k, err := decodeValue(dec)
			if err != nil {
				return Value{}, err
			}
			v, err := decodeValue(dec)
			if err != nil {
				return Value{}, err
			}
			pairs = append(pairs, Pair{Key: k, Value: v})
		}
		return Map(pairs...), nil

	default:
		return Value{}, fmt.Errorf("%w: code 0x%02x", ErrUnsupported, c)
	}
}
