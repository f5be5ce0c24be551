package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/pipegrid/internal/app"
	"github.com/specialistvlad/pipegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command line and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	err := Execute(context.Background(), args, out, errOut)
	return out.String(), errOut.String(), err
}

func spss(t *testing.T) string {
	t.Helper()
	return testutil.CopyDir(t, filepath.Join("..", "..", "testdata", "spss"))
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected *ExitError, got %T: %v", err, err)
	return exitErr.Code
}

func TestExecute_Help(t *testing.T) {
	out, _, err := execute(t, "--help")

	require.NoError(t, err)
	assert.Contains(t, out, "pipegrid")
	assert.Contains(t, out, "run")
	assert.Contains(t, out, "validate")
}

func TestExecute_UsageErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"run", "--no-such-flag"}},
		{name: "unknown command", args: []string{"explode"}},
		{name: "too many arguments", args: []string{"validate", "a.dot", "b.dot"}},
		{name: "invalid log level", args: []string{"validate", "a.dot", "--log-level", "loud"}},
		{name: "invalid log format", args: []string{"validate", "a.dot", "--log-format", "xml"}},
		{name: "no diagram or bindings", args: []string{"validate"}},
		{name: "invalid worker count", args: []string{"run", "a.dot", "--workers", "-1"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := execute(t, tc.args...)

			require.Error(t, err)
			assert.Equal(t, ExitUsage, exitCode(t, err))
		})
	}
}

func TestExecute_Validate(t *testing.T) {
	dir := spss(t)

	out, _, err := execute(t, "validate", "-b", filepath.Join(dir, "bindings.hcl"))

	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)
}

func TestExecute_Validate_Failure(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"p.dot": `digraph P { A -> B; B -> A; }`,
		"b.hcl": `stage "A" { runner = "passthrough" }`,
	})

	_, _, err := execute(t, "validate", filepath.Join(dir, "p.dot"), "-b", filepath.Join(dir, "b.hcl"))

	require.Error(t, err)
	assert.Equal(t, ExitFailure, exitCode(t, err))
	assert.Contains(t, err.Error(), "cycle")
}

func TestExecute_Run(t *testing.T) {
	// Arrange
	dir := spss(t)
	reportPath := filepath.Join(dir, "out", "report.json")

	// Act
	_, logs, err := execute(t, "run", "-b", filepath.Join(dir, "bindings.hcl"),
		"--workers", "2", "--report", reportPath, "--log-format", "json")

	// Assert
	require.NoError(t, err, logs)
	summary, err := os.ReadFile(filepath.Join(dir, "out", "summary.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "adult,0.8,2,160")
	assert.FileExists(t, reportPath)
	assert.Contains(t, logs, `"workers":2`)
}

func TestExecute_Run_StageFailure(t *testing.T) {
	dir := spss(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "data", "rates.csv")))

	_, _, err := execute(t, "run", "-b", filepath.Join(dir, "bindings.hcl"))

	require.Error(t, err)
	assert.Equal(t, ExitFailure, exitCode(t, err))
	assert.Contains(t, err.Error(), "stage 'S4'")
}

func TestExecute_Plan(t *testing.T) {
	dir := spss(t)

	out, _, err := execute(t, "plan", "-b", filepath.Join(dir, "bindings.hcl"))

	require.NoError(t, err)
	assert.Contains(t, out, "Pipeline spss")
	assert.Contains(t, out, "workers: 4, fail fast: true")
	assert.Contains(t, out, "Layer 1\n  S0")
	assert.Contains(t, out, "Layer 12")
	assert.NotContains(t, out, "\x1b[", "plan output to a buffer must not be styled")
}

func TestExecute_Render_WithReport(t *testing.T) {
	// Arrange: a previous run leaves a report behind.
	dir := spss(t)
	bindings := filepath.Join(dir, "bindings.hcl")
	reportPath := filepath.Join(dir, "report.yaml")
	_, _, err := execute(t, "run", "-b", bindings, "--report", reportPath)
	require.NoError(t, err)

	// Act
	out, _, err := execute(t, "render", "-b", bindings, "--report", reportPath)

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "digraph SPSS_Pipeline")
	assert.Contains(t, out, "palegreen")
}

func TestExecute_Render_MissingReport(t *testing.T) {
	dir := spss(t)

	_, _, err := execute(t, "render", "-b", filepath.Join(dir, "bindings.hcl"), "--report", filepath.Join(dir, "nope.yaml"))

	require.Error(t, err)
	assert.Equal(t, ExitFailure, exitCode(t, err))
}

func TestExecute_Runners(t *testing.T) {
	out, _, err := execute(t, "runners")

	require.NoError(t, err)
	for _, name := range []string{"passthrough", "csv_read", "csv_write", "join", "aggregate", "sqlite_write"} {
		assert.Contains(t, out, name)
	}
}

func TestFormatPlan(t *testing.T) {
	// Arrange
	p := &app.Plan{
		Pipeline: "demo",
		Diagram:  "demo.dot",
		Workers:  2,
		Layers: [][]app.PlanStage{
			{{ID: "A", Label: "Load", Runner: "csv_read", Bound: true}},
			{{ID: "Join", Runner: "passthrough", Inputs: []string{"A"}}},
		},
	}

	// Act
	got := formatPlan(p, plainTheme())

	// Assert
	want := "Pipeline demo (demo.dot)\n" +
		"workers: 2, fail fast: false\n" +
		"\n" +
		"Layer 1\n" +
		"  A     csv_read     Load\n" +
		"\n" +
		"Layer 2\n" +
		"  Join  passthrough  <- A\n"
	assert.Equal(t, want, got)
}
