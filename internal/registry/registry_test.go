package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Column string `hcl:"column"`
}

func echoRunner() *RegisteredRunner {
	return &RegisteredRunner{
		NewInput: func() any { return new(echoArgs) },
		Fn: func(_ context.Context, in *runner.Inputs, args *echoArgs) (*table.Table, error) {
			if args.Column == "" {
				return nil, errors.New("column required")
			}
			return table.New(args.Column), nil
		},
	}
}

func TestRegisterRunner_DuplicatePanics(t *testing.T) {
	r := New()
	r.RegisterRunner("echo", echoRunner())

	assert.PanicsWithValue(t, "runner with name 'echo' already registered", func() {
		r.RegisterRunner("echo", echoRunner())
	})
}

func TestLookupAndNames(t *testing.T) {
	r := New()
	r.RegisterRunner("zeta", echoRunner())
	r.RegisterRunner("alpha", echoRunner())

	_, ok := r.Lookup("alpha")
	assert.True(t, ok)
	_, ok = r.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name        string
		runner      *RegisteredRunner
		errContains string
	}{
		{name: "valid", runner: echoRunner()},
		{
			name:        "missing fn",
			runner:      &RegisteredRunner{NewInput: func() any { return new(echoArgs) }},
			errContains: "NewInput and Fn are required",
		},
		{
			name:        "not a function",
			runner:      &RegisteredRunner{NewInput: func() any { return new(echoArgs) }, Fn: 42},
			errContains: "Fn must be a function",
		},
		{
			name: "wrong arguments",
			runner: &RegisteredRunner{
				NewInput: func() any { return new(echoArgs) },
				Fn:       func(_ context.Context, _ *echoArgs) (*table.Table, error) { return nil, nil },
			},
			errContains: "Fn must accept",
		},
		{
			name: "wrong results",
			runner: &RegisteredRunner{
				NewInput: func() any { return new(echoArgs) },
				Fn:       func(_ context.Context, _ *runner.Inputs, _ *echoArgs) error { return nil },
			},
			errContains: "Fn must return",
		},
		{
			name: "input type mismatch",
			runner: &RegisteredRunner{
				NewInput: func() any { return new(struct{}) },
				Fn:       func(_ context.Context, _ *runner.Inputs, _ *echoArgs) (*table.Table, error) { return nil, nil },
			},
			errContains: "but NewInput returns",
		},
		{
			name: "input not a struct pointer",
			runner: &RegisteredRunner{
				NewInput: func() any { return "x" },
				Fn:       func(_ context.Context, _ *runner.Inputs, _ *echoArgs) (*table.Table, error) { return nil, nil },
			},
			errContains: "pointer to a struct",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := New()
			r.RegisterRunner("test", tc.runner)

			err := r.Validate(context.Background())

			if tc.errContains == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "runner 'test'")
			assert.Contains(t, err.Error(), tc.errContains)
		})
	}
}

func TestCall(t *testing.T) {
	rr := echoRunner()
	in := &runner.Inputs{Stage: "S1"}

	tbl, err := rr.Call(context.Background(), in, &echoArgs{Column: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, tbl.Columns)

	tbl, err = rr.Call(context.Background(), in, &echoArgs{})
	assert.EqualError(t, err, "column required")
	assert.Nil(t, tbl)
}
