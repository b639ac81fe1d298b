// Package jsonvalue holds an in-memory JSON document that keeps object keys in
// the order they were written.
package jsonvalue

import (
	"strconv"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is a tagged JSON value. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind

	Bool   bool
	Number float64
	// Raw is the number as it appeared in the source text.
	Raw    string
	String string
	Array  []Value
	Object *Object
}

// Null returns the JSON null value.
func Null() Value { return Value{Kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Number returns a numeric value written in its shortest form.
func Number(f float64) Value {
	return Value{Kind: KindNumber, Number: f, Raw: strconv.FormatFloat(f, 'g', -1, 64)}
}

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, String: s} }

// Array returns an array value holding elems in order.
func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{Kind: KindArray, Array: elems}
}

// ObjectValue wraps o as a value. A nil o becomes an empty object.
func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{Kind: KindObject, Object: o}
}

// Member is one key/value entry of an object.
type Member struct {
	Key   string
	Value Value
}

// Object is a JSON object with unique keys kept in insertion order.
type Object struct {
	members []Member
	index   map[string]int
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{index: make(map[string]int)}
}

// Len returns the number of members.
func (o *Object) Len() int {
	return len(o.members)
}

// Members returns the members in order. The slice must not be modified.
func (o *Object) Members() []Member {
	return o.members
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	i, ok := o.index[key]
	if !ok {
		return Value{}, false
	}
	return o.members[i].Value, true
}

// Set stores v under key. An existing key keeps its position and has its value
// replaced; a new key is appended.
func (o *Object) Set(key string, v Value) {
	if i, ok := o.index[key]; ok {
		o.members[i].Value = v
		return
	}
	o.index[key] = len(o.members)
	o.members = append(o.members, Member{Key: key, Value: v})
}
