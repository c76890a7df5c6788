package template

import (
	"encoding/base64"
	"fmt"
	"math"
	"math/big"

	"github.com/aretw0/tendril/pkg/value"
	"github.com/zclconf/go-cty/cty"
)

// ToCty converts a Value for use inside an HCL evaluation. Binary becomes its
// base64 text and Expression its raw template text; NaN becomes null.
func ToCty(v value.Value) cty.Value {
	switch v.Kind() {
	case value.KindBool:
		b, _ := v.AsBool()
		return cty.BoolVal(b)
	case value.KindInt:
		i, _ := v.AsInt()
		return cty.NumberIntVal(i)
	case value.KindFloat:
		f, _ := v.AsFloat()
		if math.IsNaN(f) {
			return cty.NullVal(cty.Number)
		}
		return cty.NumberFloatVal(f)
	case value.KindText:
		s, _ := v.AsText()
		return cty.StringVal(s)
	case value.KindBinary:
		return cty.StringVal(base64.StdEncoding.EncodeToString(v.Bytes()))
	case value.KindExpression:
		s, _ := v.Template()
		return cty.StringVal(s)
	case value.KindArray:
		if v.Len() == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, 0, v.Len())
		for _, e := range v.Elements() {
			elems = append(elems, ToCty(e))
		}
		return cty.TupleVal(elems)
	case value.KindObject:
		if v.Len() == 0 {
			return cty.EmptyObjectVal
		}
		attrs := make(map[string]cty.Value, v.Len())
		for k, f := range v.Fields() {
			attrs[string(k)] = ToCty(f)
		}
		return cty.ObjectVal(attrs)
	default:
		return cty.NullVal(cty.DynamicPseudoType)
	}
}

// FromCty converts an evaluation result back. Whole numbers that fit in an
// int64 become Int, other numbers Float.
func FromCty(v cty.Value) (value.Value, error) {
	if !v.IsKnown() {
		return value.Value{}, fmt.Errorf("template result is unknown")
	}
	if v.IsNull() {
		return value.Null(), nil
	}
	ty := v.Type()
	switch {
	case ty == cty.Bool:
		return value.Bool(v.True()), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return value.Int(i), nil
			}
		}
		f, _ := bf.Float64()
		return value.Float(f), nil
	case ty == cty.String:
		return value.Text(v.AsString()), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		elems := make([]value.Value, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			conv, err := FromCty(ev)
			if err != nil {
				return value.Value{}, err
			}
			elems = append(elems, conv)
		}
		return value.Array(elems...), nil
	case ty.IsMapType() || ty.IsObjectType():
		fields := make(map[value.Key]value.Value, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			conv, err := FromCty(ev)
			if err != nil {
				return value.Value{}, fmt.Errorf("in attribute %q: %w", k.AsString(), err)
			}
			fields[value.Key(k.AsString())] = conv
		}
		return value.Object(fields), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported template result type %s", ty.FriendlyName())
	}
}
