package expr

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/specialistvlad/pipegrid/internal/table"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// DateLayout is the canonical date representation used by the date functions.
const DateLayout = "2006-01-02"

// Functions returns the function table available to row expressions and
// binding arguments. The returned map must not be modified.
var Functions = sync.OnceValue(func() map[string]function.Function {
	return map[string]function.Function{
		"upper":     stdlib.UpperFunc,
		"lower":     stdlib.LowerFunc,
		"abs":       stdlib.AbsoluteFunc,
		"floor":     stdlib.FloorFunc,
		"ceil":      stdlib.CeilFunc,
		"min":       stdlib.MinFunc,
		"max":       stdlib.MaxFunc,
		"format":    stdlib.FormatFunc,
		"substr":    stdlib.SubstrFunc,
		"coalesce":  stdlib.CoalesceFunc,
		"strlen":    stdlib.StrlenFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"replace":   stdlib.ReplaceFunc,
		"join":      stdlib.JoinFunc,
		"split":     stdlib.SplitFunc,
		"concat":    stdlib.ConcatFunc,

		"round":          roundFunc,
		"tonumber":       toNumberFunc,
		"tostring":       toStringFunc,
		"date_parse":     dateParseFunc,
		"date_format":    dateFormatFunc,
		"days_between":   daysBetweenFunc,
		"months_between": monthsBetweenFunc,
		"year":           yearFunc,
		"month":          monthFunc,
		"add_months":     addMonthsFunc,
	}
})

var roundFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "num", Type: cty.Number, AllowNull: true},
		{Name: "places", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		if args[0].IsNull() {
			return cty.NullVal(cty.Number), nil
		}
		var places int
		if err := gocty.FromCtyValue(args[1], &places); err != nil {
			return cty.NilVal, function.NewArgError(1, err)
		}
		f, _ := args[0].AsBigFloat().Float64()
		s := fmt.Sprintf("%.*f", max(places, 0), f)
		return cty.ParseNumberVal(s)
	},
})

var toNumberFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "v", Type: cty.DynamicPseudoType, AllowNull: true},
	},
	Type: function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		v := args[0]
		if v.IsNull() {
			return cty.NullVal(cty.Number), nil
		}
		if v.Type() == cty.String {
			s := strings.TrimSpace(v.AsString())
			if s == "" {
				return cty.NullVal(cty.Number), nil
			}
			v = cty.StringVal(s)
		}
		n, err := convert.Convert(v, cty.Number)
		if err != nil {
			return cty.NilVal, function.NewArgError(0, err)
		}
		return n, nil
	},
})

var toStringFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "v", Type: cty.DynamicPseudoType, AllowNull: true},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		if args[0].IsNull() {
			return cty.NullVal(cty.String), nil
		}
		return cty.StringVal(table.Format(args[0])), nil
	},
})

var dateParseFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "str", Type: cty.String, AllowNull: true},
		{Name: "layout", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		if args[0].IsNull() || strings.TrimSpace(args[0].AsString()) == "" {
			return cty.NullVal(cty.String), nil
		}
		t, err := time.Parse(goLayout(args[1].AsString()), strings.TrimSpace(args[0].AsString()))
		if err != nil {
			return cty.NilVal, function.NewArgError(0, err)
		}
		return cty.StringVal(t.Format(DateLayout)), nil
	},
})

// dateFormatFunc formats a YYYY-MM-DD date, or a number of days since
// 1970-01-01, with the given layout.
var dateFormatFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "days", Type: cty.DynamicPseudoType, AllowNull: true},
		{Name: "layout", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		if args[0].IsNull() {
			return cty.NullVal(cty.String), nil
		}
		var t time.Time
		switch args[0].Type() {
		case cty.Number:
			var days int
			if err := gocty.FromCtyValue(args[0], &days); err != nil {
				return cty.NilVal, function.NewArgError(0, err)
			}
			t = epoch.AddDate(0, 0, days)
		case cty.String:
			var err error
			if t, err = parseDate(args[0], 0); err != nil {
				return cty.NilVal, err
			}
		default:
			return cty.NilVal, function.NewArgErrorf(0, "expected a number of days or a YYYY-MM-DD date, got %s", args[0].Type().FriendlyName())
		}
		return cty.StringVal(t.Format(goLayout(args[1].AsString()))), nil
	},
})

var epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

var daysBetweenFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "from", Type: cty.String, AllowNull: true},
		{Name: "to", Type: cty.String, AllowNull: true},
	},
	Type: function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		from, to, ok, err := parseDatePair(args)
		if !ok || err != nil {
			return cty.NullVal(cty.Number), err
		}
		return cty.NumberIntVal(int64(to.Sub(from).Hours() / 24)), nil
	},
})

var monthsBetweenFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "from", Type: cty.String, AllowNull: true},
		{Name: "to", Type: cty.String, AllowNull: true},
	},
	Type: function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		from, to, ok, err := parseDatePair(args)
		if !ok || err != nil {
			return cty.NullVal(cty.Number), err
		}
		return cty.NumberIntVal(int64(monthsBetween(from, to))), nil
	},
})

var yearFunc = datePartFunc(func(t time.Time) int { return t.Year() })

var monthFunc = datePartFunc(func(t time.Time) int { return int(t.Month()) })

func datePartFunc(part func(time.Time) int) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "date", Type: cty.String, AllowNull: true},
		},
		Type: function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if args[0].IsNull() {
				return cty.NullVal(cty.Number), nil
			}
			t, err := parseDate(args[0], 0)
			if err != nil {
				return cty.NilVal, err
			}
			return cty.NumberIntVal(int64(part(t))), nil
		},
	})
}

var addMonthsFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "date", Type: cty.String, AllowNull: true},
		{Name: "months", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		if args[0].IsNull() {
			return cty.NullVal(cty.String), nil
		}
		t, err := parseDate(args[0], 0)
		if err != nil {
			return cty.NilVal, err
		}
		var n int
		if err := gocty.FromCtyValue(args[1], &n); err != nil {
			return cty.NilVal, function.NewArgError(1, err)
		}
		return cty.StringVal(addMonths(t, n).Format(DateLayout)), nil
	},
})

func parseDate(v cty.Value, argIdx int) (time.Time, error) {
	t, err := time.Parse(DateLayout, v.AsString())
	if err != nil {
		return time.Time{}, function.NewArgErrorf(argIdx, "expected a YYYY-MM-DD date, got %q", v.AsString())
	}
	return t, nil
}

// parseDatePair returns ok=false when either argument is null.
func parseDatePair(args []cty.Value) (from, to time.Time, ok bool, err error) {
	if args[0].IsNull() || args[1].IsNull() {
		return from, to, false, nil
	}
	if from, err = parseDate(args[0], 0); err != nil {
		return from, to, false, err
	}
	if to, err = parseDate(args[1], 1); err != nil {
		return from, to, false, err
	}
	return from, to, true, nil
}

// monthsBetween counts whole calendar months from a to b. The result is
// negative when b is before a.
func monthsBetween(a, b time.Time) int {
	if b.Before(a) {
		return -monthsBetween(b, a)
	}
	n := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() && !isLastDay(b) {
		n--
	}
	return n
}

// addMonths keeps the day of month, clamped to the last day of the target
// month.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(t.Day(), last)-1)
}

func isLastDay(t time.Time) bool {
	return t.AddDate(0, 0, 1).Day() == 1
}

var layoutTokens = strings.NewReplacer("YYYY", "2006", "YY", "06", "MM", "01", "DD", "02")

// goLayout accepts either a Go reference layout or one written with YYYY, MM
// and DD tokens.
func goLayout(layout string) string {
	if strings.Contains(layout, "YY") || strings.Contains(layout, "DD") {
		return layoutTokens.Replace(layout)
	}
	return layout
}
