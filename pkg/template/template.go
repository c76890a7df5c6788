// Package template evaluates Expression values. The template text uses HCL
// template syntax, so "${width * 2}px" or "%{ if enabled }on%{ else }off%{ endif }"
// are both valid. Every parameter whose key is a valid identifier is exposed
// as a variable; all parameters are also reachable through the "values"
// object, e.g. ${values["render.quality"]}.
package template

import (
	"errors"
	"fmt"

	"github.com/aretw0/tendril/pkg/value"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// ErrNotExpression is returned when a non-Expression value is compiled.
var ErrNotExpression = errors.New("value is not an expression")

var functions = map[string]function.Function{
	"upper":    stdlib.UpperFunc,
	"lower":    stdlib.LowerFunc,
	"trim":     stdlib.TrimSpaceFunc,
	"join":     stdlib.JoinFunc,
	"format":   stdlib.FormatFunc,
	"min":      stdlib.MinFunc,
	"max":      stdlib.MaxFunc,
	"abs":      stdlib.AbsoluteFunc,
	"length":   stdlib.LengthFunc,
	"coalesce": stdlib.CoalesceFunc,
}

// Compile parses the template of v. The parsed form is cached on v and
// shared with every copy of it, so a template is parsed at most once.
func Compile(v value.Value) (hclsyntax.Expression, error) {
	src, ok := v.Template()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExpression, v.Kind())
	}
	if cached, ok := v.Compiled(); ok {
		if e, ok := cached.(hclsyntax.Expression); ok {
			return e, nil
		}
	}
	e, diags := hclsyntax.ParseTemplate([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse template %q: %w", src, diags)
	}
	v.SetCompiled(e)
	return e, nil
}

// References returns the top-level variable names a template reads. Reads
// through the "values" object are reported by the key they index when it is
// a literal string.
func References(v value.Value) ([]value.Key, error) {
	e, err := Compile(v)
	if err != nil {
		return nil, err
	}
	seen := make(map[value.Key]struct{})
	for _, traversal := range e.Variables() {
		root := traversal.RootName()
		if root != "values" {
			seen[value.Key(root)] = struct{}{}
			continue
		}
		if len(traversal) > 1 {
			switch step := traversal[1].(type) {
			case hcl.TraverseIndex:
				if step.Key.Type() == cty.String && step.Key.IsKnown() && !step.Key.IsNull() {
					seen[value.Key(step.Key.AsString())] = struct{}{}
				}
			case hcl.TraverseAttr:
				seen[value.Key(step.Name)] = struct{}{}
			}
		}
	}
	keys := make([]value.Key, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	value.SortKeys(keys)
	return keys, nil
}

// Evaluate renders the template of v against vars. Non-Expression values are
// returned unchanged. A template made of a single interpolation yields the
// interpolated value with its own kind; anything else yields Text.
func Evaluate(v value.Value, vars value.Map) (value.Value, error) {
	if v.Kind() != value.KindExpression {
		return v, nil
	}
	e, err := Compile(v)
	if err != nil {
		return value.Value{}, err
	}
	out, diags := e.Value(evalContext(vars))
	if diags.HasErrors() {
		return value.Value{}, fmt.Errorf("evaluate template: %w", diags)
	}
	return FromCty(out)
}

func evalContext(vars value.Map) *hcl.EvalContext {
	variables := make(map[string]cty.Value, len(vars)+1)
	all := make(map[string]cty.Value, len(vars))
	for k, v := range vars {
		cv := ToCty(v)
		all[string(k)] = cv
		if hclsyntax.ValidIdentifier(string(k)) {
			variables[string(k)] = cv
		}
	}
	variables["values"] = cty.ObjectVal(all)
	return &hcl.EvalContext{Variables: variables, Functions: functions}
}
