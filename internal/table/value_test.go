package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zclconf/go-cty/cty"
)

func TestFormat(t *testing.T) {
	testCases := []struct {
		name string
		in   cty.Value
		want string
	}{
		{"string", cty.StringVal("x"), "x"},
		{"integer", cty.NumberIntVal(1200000), "1200000"},
		{"fraction", cty.NumberFloatVal(12.5), "12.5"},
		{"negative", cty.NumberFloatVal(-0.25), "-0.25"},
		{"bool", cty.True, "true"},
		{"null number", cty.NullVal(cty.Number), ""},
		{"list", cty.ListVal([]cty.Value{cty.StringVal("a")}), `["a"]`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Format(tc.in))
		})
	}
}

func TestParse(t *testing.T) {
	assert.True(t, Parse("").IsNull())
	assert.True(t, Parse("42").RawEquals(cty.NumberIntVal(42)))
	assert.True(t, Parse("true").RawEquals(cty.True))
	assert.True(t, Parse("abc").RawEquals(cty.StringVal("abc")))
	assert.True(t, Parse("Inf").RawEquals(cty.StringVal("Inf")))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare(cty.NumberIntVal(2), cty.NumberIntVal(10)))
	assert.Equal(t, 0, Compare(cty.NumberIntVal(3), cty.NumberFloatVal(3)))
	assert.Equal(t, 1, Compare(cty.StringVal("b"), cty.StringVal("a")))
	assert.Equal(t, -1, Compare(cty.False, cty.True))
	assert.Equal(t, 1, Compare(cty.NullVal(cty.Number), cty.NumberIntVal(1)))
	assert.Equal(t, -1, Compare(cty.NumberIntVal(1), cty.NullVal(cty.Number)))
	assert.Equal(t, 0, Compare(cty.NullVal(cty.String), cty.NullVal(cty.Number)))
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key(cty.NumberIntVal(1), cty.StringVal("a")), Key(cty.NumberFloatVal(1), cty.StringVal("a")))
	assert.NotEqual(t, Key(cty.StringVal("1")), Key(cty.NumberIntVal(1)))
	assert.NotEqual(t, Key(cty.NullVal(cty.String)), Key(cty.StringVal("")))
	assert.NotEqual(t, Key(cty.StringVal("a"), cty.StringVal("b")), Key(cty.StringVal("a\x1fb")))
}
