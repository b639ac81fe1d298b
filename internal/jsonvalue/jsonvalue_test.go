package jsonvalue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(o *Object) []string {
	var ks []string
	for _, m := range o.Members() {
		ks = append(ks, m.Key)
	}
	return ks
}

func TestParse_Scalars(t *testing.T) {
	tests := []struct {
		input string
		want  Value
	}{
		{"null", Null()},
		{"true", Bool(true)},
		{" false ", Bool(false)},
		{"42", Value{Kind: KindNumber, Number: 42, Raw: "42"}},
		{"-1.5e3", Value{Kind: KindNumber, Number: -1500, Raw: "-1.5e3"}},
		{`"a\"bé"`, String("a\"bé")},
		{`"😀"`, String("\U0001F600")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_ObjectKeepsOrder(t *testing.T) {
	v, err := Parse([]byte(`{"z":1,"a":[true,null,"x"],"m":{"k":"v"}}`))
	require.NoError(t, err)
	require.Equal(t, KindObject, v.Kind)

	assert.Equal(t, []string{"z", "a", "m"}, keys(v.Object))

	a, ok := v.Object.Get("a")
	require.True(t, ok)
	assert.Equal(t, Array(Bool(true), Null(), String("x")), a)

	m, _ := v.Object.Get("m")
	inner, _ := m.Object.Get("k")
	assert.Equal(t, String("v"), inner)
}

func TestParse_DuplicateKeyLastWins(t *testing.T) {
	v, err := Parse([]byte(`{"a":1,"b":2,"a":3}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, keys(v.Object))
	a, _ := v.Object.Get("a")
	assert.Equal(t, float64(3), a.Number)
}

func TestParse_EscapedKey(t *testing.T) {
	v, err := Parse([]byte(`{"a\nb":1}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a\nb"}, keys(v.Object))
}

func TestParse_EmptyContainers(t *testing.T) {
	v, err := Parse([]byte(`{"a":[],"o":{}}`))
	require.NoError(t, err)

	a, _ := v.Object.Get("a")
	assert.Equal(t, KindArray, a.Kind)
	assert.Empty(t, a.Array)

	o, _ := v.Object.Get("o")
	assert.Equal(t, KindObject, o.Kind)
	assert.Equal(t, 0, o.Object.Len())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", []byte("")},
		{"truncated object", []byte(`{"a":`)},
		{"trailing garbage", []byte(`{} x`)},
		{"bare word", []byte(`nope`)},
		{"invalid utf8", []byte{'"', 0xff, '"'}},
		{"single quotes", []byte(`{'a':1}`)},
		{"number out of range", []byte(`1e400`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestObject_Set(t *testing.T) {
	o := NewObject()
	o.Set("a", Number(1))
	o.Set("b", Number(2))
	o.Set("a", String("x"))

	assert.Equal(t, 2, o.Len())
	assert.Equal(t, []string{"a", "b"}, keys(o))
	a, _ := o.Get("a")
	assert.Equal(t, String("x"), a)

	_, ok := o.Get("missing")
	assert.False(t, ok)
}

func TestMarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"scalars", `[null, true, false, 1.50, "s"]`, `[null,true,false,1.50,"s"]`},
		{"order kept", `{"b": 1, "a": {"y": [], "x": {}}}`, `{"b":1,"a":{"y":[],"x":{}}}`},
		{"no html escaping", `{"m":"<a> & b"}`, `{"m":"<a> & b"}`},
		{"escapes", `"line\nquote\"tab\t"`, `"line\nquote\"tab\t"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse([]byte(tt.input))
			require.NoError(t, err)

			got, err := Marshal(v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshal_Constructed(t *testing.T) {
	o := NewObject()
	o.Set("n", Number(42))
	o.Set("f", Number(0.25))
	o.Set("arr", Array())

	got, err := Marshal(ObjectValue(o))
	require.NoError(t, err)
	assert.Equal(t, `{"n":42,"f":0.25,"arr":[]}`, string(got))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "object", KindObject.String())
	assert.Equal(t, "invalid", Kind(99).String())
}
