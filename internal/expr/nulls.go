package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
)

// nullSafe rewrites e in place so that a null operand makes the enclosing
// operator, conditional, template or function call null instead of an
// error. Equality operators and functions that accept nulls (coalesce, the
// date helpers) keep their own semantics.
func nullSafe(e hclsyntax.Expression) hclsyntax.Expression {
	switch n := e.(type) {
	case *hclsyntax.BinaryOpExpr:
		n.LHS = nullSafe(n.LHS)
		n.RHS = nullSafe(n.RHS)
		if n.Op == hclsyntax.OpEqual || n.Op == hclsyntax.OpNotEqual {
			return n
		}
		return &nullSafeBinary{n}
	case *hclsyntax.UnaryOpExpr:
		n.Val = nullSafe(n.Val)
		return &nullSafeUnary{n}
	case *hclsyntax.ConditionalExpr:
		n.Condition = nullSafe(n.Condition)
		n.TrueResult = nullSafe(n.TrueResult)
		n.FalseResult = nullSafe(n.FalseResult)
		return &nullSafeConditional{n}
	case *hclsyntax.FunctionCallExpr:
		for i := range n.Args {
			n.Args[i] = nullSafe(n.Args[i])
		}
		return &nullSafeCall{n}
	case *hclsyntax.TemplateExpr:
		for i := range n.Parts {
			n.Parts[i] = nullSafe(n.Parts[i])
		}
		return &nullSafeTemplate{n}
	case *hclsyntax.TemplateWrapExpr:
		n.Wrapped = nullSafe(n.Wrapped)
	case *hclsyntax.ParenthesesExpr:
		n.Expression = nullSafe(n.Expression)
	case *hclsyntax.TupleConsExpr:
		for i := range n.Exprs {
			n.Exprs[i] = nullSafe(n.Exprs[i])
		}
	case *hclsyntax.ObjectConsExpr:
		for i := range n.Items {
			n.Items[i].ValueExpr = nullSafe(n.Items[i].ValueExpr)
		}
	case *hclsyntax.IndexExpr:
		n.Collection = nullSafe(n.Collection)
		n.Key = nullSafe(n.Key)
	case *hclsyntax.RelativeTraversalExpr:
		n.Source = nullSafe(n.Source)
	}
	return e
}

func operandError(rng hcl.Range, err error) hcl.Diagnostics {
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Invalid operand",
		Detail:   fmt.Sprintf("Unsuitable value for operand: %s.", err),
		Subject:  rng.Ptr(),
	}}
}

func callOperation(op *hclsyntax.Operation, rng hcl.Range, args ...cty.Value) (cty.Value, hcl.Diagnostics) {
	params := op.Impl.Params()
	for i := range args {
		v, err := convert.Convert(args[i], params[i].Type)
		if err != nil {
			return cty.UnknownVal(op.Type), operandError(rng, err)
		}
		args[i] = v
	}
	v, err := op.Impl.Call(args)
	if err != nil {
		return cty.UnknownVal(op.Type), hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Operation failed",
			Detail:   fmt.Sprintf("Error during operation: %s.", err),
			Subject:  rng.Ptr(),
		}}
	}
	return v, nil
}

type nullSafeBinary struct {
	*hclsyntax.BinaryOpExpr
}

func (e *nullSafeBinary) Value(ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	lhs, lhsDiags := e.LHS.Value(ctx)
	rhs, rhsDiags := e.RHS.Value(ctx)
	if e.Op == hclsyntax.OpLogicalAnd || e.Op == hclsyntax.OpLogicalOr {
		return e.logical(lhs, rhs, lhsDiags, rhsDiags)
	}
	diags := append(lhsDiags, rhsDiags...)
	if diags.HasErrors() {
		return cty.UnknownVal(e.Op.Type), diags
	}
	if lhs.IsNull() || rhs.IsNull() {
		return cty.NullVal(e.Op.Type), diags
	}
	v, opDiags := callOperation(e.Op, e.Range(), lhs, rhs)
	return v, append(diags, opDiags...)
}

// logical treats null as unknown truth: false && null is false, true || null
// is true, anything else involving null is null. A side that decides the
// result hides errors on the other side.
func (e *nullSafeBinary) logical(lhs, rhs cty.Value, lhsDiags, rhsDiags hcl.Diagnostics) (cty.Value, hcl.Diagnostics) {
	decisive := e.Op == hclsyntax.OpLogicalOr
	sides := []struct {
		val   cty.Value
		diags hcl.Diagnostics
		rng   hcl.Range
	}{{lhs, lhsDiags, e.LHS.Range()}, {rhs, rhsDiags, e.RHS.Range()}}

	for i, side := range sides {
		if side.diags.HasErrors() || side.val.IsNull() {
			continue
		}
		b, err := convert.Convert(side.val, cty.Bool)
		if err != nil {
			sides[i].diags = append(side.diags, operandError(side.rng, err)...)
			continue
		}
		sides[i].val = b
		if b.IsKnown() && b.True() == decisive {
			return cty.BoolVal(decisive), side.diags
		}
	}

	diags := append(sides[0].diags, sides[1].diags...)
	if diags.HasErrors() {
		return cty.UnknownVal(cty.Bool), diags
	}
	if sides[0].val.IsNull() || sides[1].val.IsNull() {
		return cty.NullVal(cty.Bool), diags
	}
	return cty.BoolVal(!decisive), diags
}

type nullSafeUnary struct {
	*hclsyntax.UnaryOpExpr
}

func (e *nullSafeUnary) Value(ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	val, diags := e.Val.Value(ctx)
	if diags.HasErrors() {
		return cty.UnknownVal(e.Op.Type), diags
	}
	if val.IsNull() {
		return cty.NullVal(e.Op.Type), diags
	}
	v, opDiags := callOperation(e.Op, e.Range(), val)
	return v, append(diags, opDiags...)
}

type nullSafeConditional struct {
	*hclsyntax.ConditionalExpr
}

func (e *nullSafeConditional) Value(ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	cond, diags := e.Condition.Value(ctx)
	if diags.HasErrors() {
		return cty.DynamicVal, diags
	}
	if cond.IsNull() {
		return cty.NullVal(cty.DynamicPseudoType), diags
	}
	cond, err := convert.Convert(cond, cty.Bool)
	if err != nil {
		return cty.DynamicVal, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Incorrect condition type",
			Detail:   "The condition expression must be of type bool.",
			Subject:  e.Condition.Range().Ptr(),
		})
	}
	var v cty.Value
	var branchDiags hcl.Diagnostics
	if cond.True() {
		v, branchDiags = e.TrueResult.Value(ctx)
	} else {
		v, branchDiags = e.FalseResult.Value(ctx)
	}
	return v, append(diags, branchDiags...)
}

type nullSafeCall struct {
	*hclsyntax.FunctionCallExpr
}

func (e *nullSafeCall) Value(ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	f, ok := ctx.Functions[e.Name]
	if !ok || e.ExpandFinal {
		return e.FunctionCallExpr.Value(ctx)
	}
	params, varParam := f.Params(), f.VarParam()
	if len(e.Args) < len(params) || (varParam == nil && len(e.Args) > len(params)) {
		return e.FunctionCallExpr.Value(ctx)
	}

	var diags hcl.Diagnostics
	args := make([]cty.Value, len(e.Args))
	for i, arg := range e.Args {
		v, argDiags := arg.Value(ctx)
		diags = append(diags, argDiags...)
		args[i] = v
	}
	if diags.HasErrors() {
		return cty.DynamicVal, diags
	}

	for i, v := range args {
		param := varParam
		if i < len(params) {
			param = &params[i]
		}
		if v.IsNull() && !param.AllowNull {
			return cty.NullVal(cty.DynamicPseudoType), diags
		}
		conv, err := convert.Convert(v, param.Type)
		if err != nil {
			return cty.DynamicVal, append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid function argument",
				Detail:   fmt.Sprintf("Invalid value for %q parameter: %s.", param.Name, err),
				Subject:  e.Args[i].Range().Ptr(),
			})
		}
		args[i] = conv
	}

	v, err := f.Call(args)
	if err != nil {
		detail := err.Error()
		var argErr function.ArgError
		if errors.As(err, &argErr) {
			detail = fmt.Sprintf("Invalid value for argument %d: %s.", argErr.Index+1, argErr.Error())
		}
		return cty.DynamicVal, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Error in function call",
			Detail:   fmt.Sprintf("Call to function %q failed: %s", e.Name, detail),
			Subject:  e.Range().Ptr(),
		})
	}
	return v, diags
}

type nullSafeTemplate struct {
	*hclsyntax.TemplateExpr
}

func (e *nullSafeTemplate) Value(ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	var sb strings.Builder
	var diags hcl.Diagnostics
	for _, part := range e.Parts {
		v, partDiags := part.Value(ctx)
		diags = append(diags, partDiags...)
		if partDiags.HasErrors() {
			return cty.UnknownVal(cty.String), diags
		}
		if v.IsNull() {
			return cty.NullVal(cty.String), diags
		}
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return cty.UnknownVal(cty.String), append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid template interpolation value",
				Detail:   fmt.Sprintf("Cannot include the given value in a string template: %s.", err),
				Subject:  part.Range().Ptr(),
			})
		}
		sb.WriteString(s.AsString())
	}
	return cty.StringVal(sb.String()), diags
}
