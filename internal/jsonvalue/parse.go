package jsonvalue

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/buger/jsonparser"
)

// ErrInvalidInput is wrapped by every error caused by input that is not valid
// UTF-8 or not a valid JSON document.
var ErrInvalidInput = errors.New("invalid input")

// Parse decodes data into a Value. Object keys keep their source order; when
// a key repeats, the last value wins and the first position is kept.
func Parse(data []byte) (Value, error) {
	if !utf8.Valid(data) {
		return Value{}, fmt.Errorf("%w: not valid UTF-8", ErrInvalidInput)
	}

	// jsonparser is lenient about trailing garbage and some malformed
	// documents, so the grammar is checked up front.
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	val, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	v, err := parseValue(val, typ)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return v, nil
}

func parseValue(data []byte, typ jsonparser.ValueType) (Value, error) {
	switch typ {
	case jsonparser.Null:
		return Null(), nil

	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(data)
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil

	case jsonparser.Number:
		f, err := jsonparser.ParseFloat(data)
		if err != nil {
			return Value{}, fmt.Errorf("number %s out of range", data)
		}
		return Value{Kind: KindNumber, Number: f, Raw: string(data)}, nil

	case jsonparser.String:
		s, err := jsonparser.ParseString(data)
		if err != nil {
			return Value{}, err
		}
		return String(s), nil

	case jsonparser.Array:
		elems := []Value{}
		var walkErr error
		_, err := jsonparser.ArrayEach(data, func(elem []byte, elemType jsonparser.ValueType, _ int, err error) {
			if walkErr != nil {
				return
			}
			if err != nil {
				walkErr = err
				return
			}
			v, err := parseValue(elem, elemType)
			if err != nil {
				walkErr = err
				return
			}
			elems = append(elems, v)
		})
		if err == nil {
			err = walkErr
		}
		if err != nil {
			return Value{}, err
		}
		return Array(elems...), nil

	case jsonparser.Object:
		obj := NewObject()
		err := jsonparser.ObjectEach(data, func(key, elem []byte, elemType jsonparser.ValueType, _ int) error {
			v, err := parseValue(elem, elemType)
			if err != nil {
				return err
			}
			obj.Set(string(key), v)
			return nil
		})
		if err != nil {
			return Value{}, err
		}
		return ObjectValue(obj), nil

	default:
		return Value{}, fmt.Errorf("unexpected value type %s", typ)
	}
}
