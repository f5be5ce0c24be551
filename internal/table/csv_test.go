package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

var cellComparer = cmp.Comparer(func(a, b cty.Value) bool { return a.RawEquals(b) })

func TestReadCSV_InfersColumnTypes(t *testing.T) {
	// Arrange
	src := "id,name,amount,active\n1,ann,10.5,true\n2,,,false\n3,bob,7,\n"

	// Act
	got, err := ReadCSV(strings.NewReader(src), CSVOptions{})

	// Assert
	require.NoError(t, err)
	want := &Table{
		Columns: []string{"id", "name", "amount", "active"},
		Rows: [][]cty.Value{
			{cty.NumberIntVal(1), cty.StringVal("ann"), cty.MustParseNumberVal("10.5"), cty.True},
			{cty.NumberIntVal(2), cty.NullVal(cty.String), cty.NullVal(cty.Number), cty.False},
			{cty.NumberIntVal(3), cty.StringVal("bob"), cty.NumberIntVal(7), cty.NullVal(cty.Bool)},
		},
	}
	if diff := cmp.Diff(want, got, cellComparer); diff != "" {
		t.Errorf("ReadCSV() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSV_MixedColumnIsString(t *testing.T) {
	got, err := ReadCSV(strings.NewReader("code\n10\nA1\n"), CSVOptions{})
	require.NoError(t, err)

	assert.True(t, got.Rows[0][0].RawEquals(cty.StringVal("10")))
}

func TestReadCSV_Options(t *testing.T) {
	got, err := ReadCSV(strings.NewReader("007;x\n010;y\n"), CSVOptions{
		Delimiter:     ';',
		NoHeader:      true,
		StringColumns: []string{"col1"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"col1", "col2"}, got.Columns)
	assert.Equal(t, "007", got.Rows[0][0].AsString())
}

func TestReadCSV_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		src         string
		errContains string
	}{
		{"ragged row", "a,b\n1,2\n3\n", "csv line 3"},
		{"duplicate header", "a,a\n1,2\n", `duplicate csv column "a"`},
		{"bad quoting", "a\n\"1\n", "failed to read csv"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tc.src), CSVOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errContains)
		})
	}
}

func TestReadCSV_EmptyInput(t *testing.T) {
	got, err := ReadCSV(strings.NewReader(""), CSVOptions{})
	require.NoError(t, err)
	assert.Empty(t, got.Columns)
	assert.Equal(t, 0, got.Len())
}

func TestWriteCSV(t *testing.T) {
	tbl := New("id", "amount", "note")
	tbl.Rows = [][]cty.Value{
		{cty.NumberIntVal(1), cty.NumberFloatVal(1e7), cty.StringVal("a,b")},
		{cty.NumberIntVal(2), cty.NullVal(cty.Number), cty.NullVal(cty.String)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, CSVOptions{}))

	assert.Equal(t, "id,amount,note\n1,10000000,\"a,b\"\n2,,\n", buf.String())
}

func TestCSV_RoundTrip(t *testing.T) {
	src := "id,score,label\n1,0.25,x\n2,-3,\n"
	tbl, err := ReadCSV(strings.NewReader(src), CSVOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, CSVOptions{}))
	assert.Equal(t, src, buf.String())
}
