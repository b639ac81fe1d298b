package msgpack

import (
	"github.com/GabrielNunesIT/plugin-pipeline/internal/jsonvalue"
)

// FromJSON maps a JSON value onto the MessagePack model. Every number becomes
// a Float64 regardless of how it was written; object keys become String keys
// in their original order.
func FromJSON(v jsonvalue.Value) Value {
	switch v.Kind {
	case jsonvalue.KindBool:
		return Bool(v.Bool)
	case jsonvalue.KindNumber:
		return Float64(v.Number)
	case jsonvalue.KindString:
		return String(v.String)
	case jsonvalue.KindArray:
		elems := make([]Value, len(v.Array))
		for i, elem := range v.Array {
			elems[i] = FromJSON(elem)
		}
		return Array(elems...)
	case jsonvalue.KindObject:
		if v.Object == nil {
			return Map()
		}
		pairs := make([]Pair, 0, v.Object.Len())
		for _, m := range v.Object.Members() {
			pairs = append(pairs, Pair{Key: String(m.Key), Value: FromJSON(m.Value)})
		}
		return Map(pairs...)
	default:
		return Nil()
	}
}

// Convert parses data as JSON and returns its MessagePack encoding. Parse
// errors wrap jsonvalue.ErrInvalidInput, encoding errors wrap ErrEncode.
func Convert(data []byte) ([]byte, error) {
	v, err := jsonvalue.Parse(data)
	if err != nil {
		return nil, err
	}
	return Marshal(FromJSON(v))
}
