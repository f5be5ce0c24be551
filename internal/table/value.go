package table

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Format renders a cell as text. Nulls become the empty string and numbers are
// written without an exponent.
func Format(v cty.Value) string {
	if v.IsNull() || !v.IsKnown() {
		return ""
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Bool:
		return strconv.FormatBool(v.True())
	case cty.Number:
		return formatNumber(v.AsBigFloat())
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return v.GoString()
	}
	return string(b)
}

func formatNumber(f *big.Float) string {
	if f.IsInt() {
		return f.Text('f', 0)
	}
	f64, _ := f.Float64()
	return strconv.FormatFloat(f64, 'f', -1, 64)
}

// Parse infers a cell from text: the empty string is null, then number, then
// bool, then string.
func Parse(s string) cty.Value {
	switch {
	case s == "":
		return cty.NullVal(cty.String)
	case isNumber(s):
		if v, err := cty.ParseNumberVal(s); err == nil {
			return v
		}
	case s == "true" || s == "false":
		return cty.BoolVal(s == "true")
	}
	return cty.StringVal(s)
}

func isNumber(s string) bool {
	if !strings.ContainsAny(s, "0123456789") {
		return false
	}
	_, err := cty.ParseNumberVal(s)
	return err == nil
}

// Compare orders two cells of the same primitive type. Nulls sort after every
// other value. Values of different types are compared by their text.
func Compare(a, b cty.Value) int {
	switch an, bn := a.IsNull(), b.IsNull(); {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	}
	if a.Type() == cty.Number && b.Type() == cty.Number {
		return a.AsBigFloat().Cmp(b.AsBigFloat())
	}
	if a.Type() == cty.Bool && b.Type() == cty.Bool {
		switch {
		case a.True() == b.True():
			return 0
		case b.True():
			return -1
		default:
			return 1
		}
	}
	return strings.Compare(Format(a), Format(b))
}

// Key returns a string usable as a map key for grouping and joining. Equal
// cells have equal keys; null has its own key.
func Key(values ...cty.Value) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(0x1f)
		}
		if v.IsNull() {
			sb.WriteString("\x00null")
			continue
		}
		sb.WriteString(v.Type().FriendlyName())
		sb.WriteByte(':')
		sb.WriteString(Format(v))
	}
	return sb.String()
}
