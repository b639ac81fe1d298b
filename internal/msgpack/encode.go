package msgpack

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrEncode is wrapped by every error raised while encoding a Value.
var ErrEncode = errors.New("encode error")

// Encode writes v to w. Floats always use the 64-bit form.
func Encode(w io.Writer, v Value) error {
	enc := msgpack.NewEncoder(w)
	if err := encodeValue(enc, v); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return nil
}

// Marshal returns the encoding of v.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(enc *msgpack.Encoder, v Value) error {
	switch v.Kind {
	case KindNil:
		return enc.EncodeNil()
	case KindBool:
		return enc.EncodeBool(v.Bool)
	case KindFloat64:
		return enc.EncodeFloat64(v.Float)
	case KindString:
		return enc.EncodeString(v.Str)
	case KindArray:
		if err := enc.EncodeArrayLen(len(v.Array)); err != nil {
			return err
		}
		for _, elem := range v.Array {
			if err := encodeValue(enc, elem); err != nil {
				return err
			}
		}
		return nil
	case KindMap:
		if err := enc.EncodeMapLen(len(v.Map)); err != nil {
			return err
		}
		for _, p := range v.Map {
			if err := encodeValue(enc, p.Key); err != nil {
				return err
			}
			if err := encodeValue(enc, p.Value); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported value kind %d", v.Kind)
	}
}
