// Package msgpack converts JSON documents into MessagePack.
//
// The target model mirrors the JSON tag set, except that maps are lists of
// (key, value) pairs whose keys may be any value. The binary layout is the
// standard MessagePack one, so any conforming decoder can read the output.
package msgpack

// Kind is the tag of a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindFloat64
	KindString
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is a tagged MessagePack value.
type Value struct {
	Kind Kind

	Bool  bool
	Float float64
	Str   string
	Array []Value
	Map   []Pair
}

// Pair is one map entry.
type Pair struct {
	Key   Value
	Value Value
}

// Nil returns the nil value.
func Nil() Value { return Value{Kind: KindNil} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Float64 returns a 64-bit float value.
func Float64(f float64) Value { return Value{Kind: KindFloat64, Float: f} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Array returns an array value.
func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{Kind: KindArray, Array: elems}
}

// Map returns a map value with pairs in the given order.
func Map(pairs ...Pair) Value {
	if pairs == nil {
		pairs = []Pair{}
	}
	return Value{Kind: KindMap, Map: pairs}
}
