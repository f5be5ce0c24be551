package hcl

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/pipegrid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type testArgs struct {
	Path      string            `hcl:"path" validate:"required"`
	Delimiter string            `hcl:"delimiter,optional" validate:"omitempty,len=1"`
	Mode      string            `hcl:"mode,optional" validate:"omitempty,oneof=replace append"`
	Columns   map[string]string `hcl:"columns,optional"`
}

func stageWithArgs(t *testing.T, src string) *config.Stage {
	t.Helper()
	f, diags := hclparse.NewParser().ParseHCL([]byte(src), "test.hcl")
	require.False(t, diags.HasErrors(), diags.Error())
	return &config.Stage{ID: "S1", Arguments: f.Body}
}

func TestEvalContext(t *testing.T) {
	conv := NewConverter()
	conv.Getenv = func() []string { return []string{"HOME=/home/ci", "BROKEN"} }
	model := config.NewModel()
	model.Pipeline.Name = "claims"
	model.Pipeline.Vars = map[string]string{"period": "2024-03"}

	evalCtx := conv.EvalContext(model, "run-1")

	assert.Equal(t, "/home/ci", evalCtx.Variables["env"].Index(cty.StringVal("HOME")).AsString())
	assert.Equal(t, "2024-03", evalCtx.Variables["var"].Index(cty.StringVal("period")).AsString())
	assert.Equal(t, "run-1", evalCtx.Variables["pipeline"].GetAttr("run_id").AsString())
	assert.Equal(t, "claims", evalCtx.Variables["pipeline"].GetAttr("name").AsString())
	assert.Contains(t, evalCtx.Functions, "date_parse")
}

func TestEvalContext_NilModel(t *testing.T) {
	evalCtx := NewConverter().EvalContext(nil, "r")
	assert.Equal(t, "", evalCtx.Variables["pipeline"].GetAttr("name").AsString())
	assert.Equal(t, 0, evalCtx.Variables["var"].LengthInt())
}

func TestDecodeArguments(t *testing.T) {
	conv := NewConverter()
	model := config.NewModel()
	model.Pipeline.Name = "claims"
	model.Pipeline.Vars = map[string]string{"dir": "out"}
	evalCtx := conv.EvalContext(model, "r1")

	stage := stageWithArgs(t, `
		path    = "${var.dir}/${pipeline.name}-${pipeline.run_id}.csv"
		mode    = "append"
		columns = { amount = "upper(x)" }
	`)

	var args testArgs
	require.NoError(t, conv.DecodeArguments(context.Background(), stage, evalCtx, &args))
	assert.Equal(t, "out/claims-r1.csv", args.Path)
	assert.Equal(t, "append", args.Mode)
	assert.Equal(t, map[string]string{"amount": "upper(x)"}, args.Columns)
}

func TestDecodeArguments_Errors(t *testing.T) {
	conv := NewConverter()
	evalCtx := conv.EvalContext(config.NewModel(), "r")

	testCases := []struct {
		name        string
		stage       *config.Stage
		errContains string
	}{
		{
			name:        "missing arguments block",
			stage:       &config.Stage{ID: "S1"},
			errContains: `Missing required argument`,
		},
		{
			name:        "validator rejects value",
			stage:       stageWithArgs(t, `path = "x.csv"`+"\n"+`mode = "truncate"`),
			errContains: "oneof",
		},
		{
			name:        "validator rejects delimiter",
			stage:       stageWithArgs(t, `path = "x.csv"`+"\n"+`delimiter = ";;"`),
			errContains: "len",
		},
		{
			name:        "unknown variable",
			stage:       stageWithArgs(t, `path = var.nope`),
			errContains: "stage 'S1': invalid arguments",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var args testArgs
			err := conv.DecodeArguments(context.Background(), tc.stage, evalCtx, &args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errContains)
		})
	}
}

func TestDecodeArguments_EmptyStructWithoutBody(t *testing.T) {
	var args struct{}
	require.NoError(t, NewConverter().DecodeArguments(context.Background(), nil, &hcl.EvalContext{}, &args))
}
