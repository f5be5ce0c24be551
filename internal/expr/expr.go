// Package expr compiles and evaluates row expressions.
//
// A row expression is an HCL expression evaluated once per table row. Columns
// whose names are valid identifiers are variables of their own (`age >= 18`);
// every column is also reachable through the `row` object
// (`row["claim date"]`).
//
// Empty cells are nulls. A null operand makes arithmetic, comparisons,
// conditionals, templates and most function calls null rather than failing
// the row; `==`, `!=` and `coalesce` see the null itself.
package expr

import (
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// RowVariable is the name of the object holding every column of the row.
const RowVariable = "row"

// reserved names are provided by the evaluation context rather than the row.
var reserved = []string{RowVariable, "var", "env", "pipeline"}

// Expr is a compiled row expression. It is safe for concurrent use.
type Expr struct {
	src  string
	expr hclsyntax.Expression
}

// Compile parses src as an HCL expression.
func Compile(src string) (*Expr, error) {
	e, diags := hclsyntax.ParseExpression([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid expression %q: %w", src, diags)
	}
	return &Expr{src: src, expr: nullSafe(e)}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source text.
func (e *Expr) String() string {
	return e.src
}

// Variables returns the columns the expression references, in first-use
// order. Names provided by the evaluation context are excluded, and
// `row["x"]` counts as a reference to column x.
func (e *Expr) Variables() []string {
	var out []string
	add := func(name string) {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	for _, trav := range e.expr.Variables() {
		root := trav.RootName()
		if root == RowVariable && len(trav) > 1 {
			if idx, ok := trav[1].(hcl.TraverseIndex); ok && idx.Key.Type() == cty.String && idx.Key.IsKnown() && !idx.Key.IsNull() {
				add(idx.Key.AsString())
			}
			continue
		}
		if slices.Contains(reserved, root) {
			continue
		}
		add(root)
	}
	return out
}

// Eval evaluates the expression against one row. vars are extra top-level
// variables (var, env, pipeline) and take precedence over columns of the
// same name.
func (e *Expr) Eval(row map[string]cty.Value, vars map[string]cty.Value) (cty.Value, error) {
	variables := make(map[string]cty.Value, len(row)+len(vars)+1)
	for name, v := range row {
		if hclsyntax.ValidIdentifier(name) {
			variables[name] = v
		}
	}
	if len(row) == 0 {
		variables[RowVariable] = cty.EmptyObjectVal
	} else {
		variables[RowVariable] = cty.ObjectVal(row)
	}
	for name, v := range vars {
		variables[name] = v
	}

	val, diags := e.expr.Value(&hcl.EvalContext{
		Variables: variables,
		Functions: Functions(),
	})
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("evaluating %q: %w", e.src, diags)
	}
	return val, nil
}

// EvalBool evaluates a predicate. A null result counts as false; any other
// non-bool result is an error.
func (e *Expr) EvalBool(row map[string]cty.Value, vars map[string]cty.Value) (bool, error) {
	val, err := e.Eval(row, vars)
	if err != nil {
		return false, err
	}
	if val.IsNull() {
		return false, nil
	}
	if val.Type() != cty.Bool {
		return false, fmt.Errorf("expression %q must return a bool, got %s", e.src, val.Type().FriendlyName())
	}
	return val.True(), nil
}
