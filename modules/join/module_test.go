package join

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/pipegrid/internal/registry"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

var cellComparer = cmp.Comparer(func(a, b cty.Value) bool { return a.RawEquals(b) })

func num(n int64) cty.Value  { return cty.NumberIntVal(n) }
func str(s string) cty.Value { return cty.StringVal(s) }

func claims() *table.Table {
	t := table.New("claim", "branch", "date")
	t.Rows = [][]cty.Value{
		{num(1), str("A"), str("2024-01-10")},
		{num(2), str("B"), str("2024-02-20")},
		{num(3), cty.NullVal(cty.String), str("2024-03-01")},
		{num(4), str("A"), str("2023-12-01")},
	}
	return t
}

func rates() *table.Table {
	t := table.New("branch", "date", "rate")
	t.Rows = [][]cty.Value{
		{str("A"), str("2024-02-01"), num(3)},
		{str("A"), str("2024-01-01"), num(2)},
		{str("B"), str("2024-01-01"), num(5)},
	}
	return t
}

func run(t *testing.T, input *Input, left, right *table.Table) *table.Table {
	t.Helper()
	in := &runner.Inputs{Stage: "S12", Tables: []*table.Table{left, right}, Names: []string{"L", "R"}}
	out, err := OnRunJoin(context.Background(), in, input)
	require.NoError(t, err)
	return out
}

func assertTable(t *testing.T, want, got *table.Table) {
	t.Helper()
	if diff := cmp.Diff(want, got, cellComparer); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestJoin_Inner(t *testing.T) {
	got := run(t, &Input{LeftOn: []string{"branch"}}, claims(), rates())

	want := table.New("claim", "branch", "date", "date_right", "rate")
	want.Rows = [][]cty.Value{
		{num(1), str("A"), str("2024-01-10"), str("2024-02-01"), num(3)},
		{num(1), str("A"), str("2024-01-10"), str("2024-01-01"), num(2)},
		{num(2), str("B"), str("2024-02-20"), str("2024-01-01"), num(5)},
		{num(4), str("A"), str("2023-12-01"), str("2024-02-01"), num(3)},
		{num(4), str("A"), str("2023-12-01"), str("2024-01-01"), num(2)},
	}
	assertTable(t, want, got)
}

func TestJoin_LeftKeepsUnmatchedAndNullKeys(t *testing.T) {
	got := run(t, &Input{Kind: "left", LeftOn: []string{"branch"}, Suffix: "_r"}, claims(), rates())

	assert.Equal(t, []string{"claim", "branch", "date", "date_r", "rate"}, got.Columns)
	require.Equal(t, 6, got.Len())
	unmatched := got.Rows[3]
	assert.True(t, unmatched[0].RawEquals(num(3)))
	assert.True(t, unmatched[3].RawEquals(cty.NullVal(cty.String)))
	assert.True(t, unmatched[4].RawEquals(cty.NullVal(cty.Number)))
}

func TestJoin_Cross(t *testing.T) {
	control := table.New("year")
	control.Rows = [][]cty.Value{{num(2024)}}

	got := run(t, &Input{Kind: "cross"}, claims(), control)

	assert.Equal(t, []string{"claim", "branch", "date", "year"}, got.Columns)
	assert.Equal(t, 4, got.Len())
	for _, row := range got.Rows {
		assert.True(t, row[3].RawEquals(num(2024)))
	}
}

func TestJoin_AsOf(t *testing.T) {
	got := run(t, &Input{
		Kind:      "asof",
		LeftOn:    []string{"branch"},
		AsOfLeft:  "date",
		AsOfRight: "date",
	}, claims(), rates())

	want := table.New("claim", "branch", "date", "date_right", "rate")
	want.Rows = [][]cty.Value{
		{num(1), str("A"), str("2024-01-10"), str("2024-01-01"), num(2)},
		{num(2), str("B"), str("2024-02-20"), str("2024-01-01"), num(5)},
		{num(3), cty.NullVal(cty.String), str("2024-03-01"), cty.NullVal(cty.String), cty.NullVal(cty.Number)},
		{num(4), str("A"), str("2023-12-01"), cty.NullVal(cty.String), cty.NullVal(cty.Number)},
	}
	assertTable(t, want, got)
}

func TestJoin_DifferentKeyNamesKeepRightKey(t *testing.T) {
	left := table.New("id", "v")
	left.Rows = [][]cty.Value{{num(1), str("x")}}
	right := table.New("ref", "w")
	right.Rows = [][]cty.Value{{num(1), str("y")}}

	got := run(t, &Input{LeftOn: []string{"id"}, RightOn: []string{"ref"}}, left, right)

	assert.Equal(t, []string{"id", "v", "ref", "w"}, got.Columns)
	assert.Equal(t, 1, got.Len())
}

func TestJoin_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		input       *Input
		tables      []*table.Table
		errContains string
	}{
		{"one input", &Input{LeftOn: []string{"branch"}}, []*table.Table{claims()}, "expects exactly two inputs"},
		{"missing keys", &Input{}, []*table.Table{claims(), rates()}, "inner join requires left_on"},
		{"key count mismatch", &Input{LeftOn: []string{"branch"}, RightOn: []string{"branch", "date"}}, []*table.Table{claims(), rates()}, "left_on has 1 columns"},
		{"unknown key", &Input{LeftOn: []string{"nope"}}, []*table.Table{claims(), rates()}, `unknown left column "nope"`},
		{"unknown asof column", &Input{Kind: "asof", AsOfLeft: "date", AsOfRight: "nope"}, []*table.Table{claims(), rates()}, `unknown right column "nope"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := &runner.Inputs{Stage: "S12", Tables: tc.tables}
			_, err := OnRunJoin(context.Background(), in, tc.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errContains)
		})
	}
}

func TestJoin_StopsWhenContextEnds(t *testing.T) {
	ids := func(n int) *table.Table {
		t := table.New("id")
		for i := range n {
			t.Rows = append(t.Rows, []cty.Value{num(int64(i))})
		}
		return t
	}
	testCases := []struct {
		name  string
		input *Input
	}{
		{"cross", &Input{Kind: "cross", Suffix: "_r"}},
		{"inner", &Input{LeftOn: []string{"id"}}},
		{"asof", &Input{Kind: "asof", AsOfLeft: "id", AsOfRight: "id", Suffix: "_r"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			in := &runner.Inputs{Stage: "S12", Tables: []*table.Table{ids(2500), ids(2500)}}

			_, err := OnRunJoin(ctx, in, tc.input)

			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestRegister(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)
	require.NoError(t, r.Validate(context.Background()))
}
