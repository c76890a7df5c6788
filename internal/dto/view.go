// Package dto holds the plain shapes the outer surfaces (HTTP, MCP, CLI)
// render. Values are converted to plain Go values with value.Value.Any.
package dto

import (
	"github.com/aretw0/tendril/pkg/expr"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/snapshot"
	"github.com/aretw0/tendril/pkg/value"
)

// ParameterInfo describes a declared parameter.
type ParameterInfo struct {
	Key         string   `json:"key" yaml:"key"`
	Kind        string   `json:"kind" yaml:"kind"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
	HasDefault  bool     `json:"has_default" yaml:"has_default"`
	Action      bool     `json:"action,omitempty" yaml:"action,omitempty"`
	VisibleWhen string   `json:"visible_when,omitempty" yaml:"visible_when,omitempty"`
	EnabledWhen string   `json:"enabled_when,omitempty" yaml:"enabled_when,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// ParameterView is the live state of one parameter of an instance.
type ParameterView struct {
	Key     string              `json:"key" yaml:"key"`
	Value   any                 `json:"value" yaml:"value"`
	Kind    string              `json:"kind" yaml:"kind"`
	Valid   bool                `json:"valid" yaml:"valid"`
	Dirty   bool                `json:"dirty" yaml:"dirty"`
	Touched bool                `json:"touched" yaml:"touched"`
	Visible bool                `json:"visible" yaml:"visible"`
	Enabled bool                `json:"enabled" yaml:"enabled"`
	Pending bool                `json:"pending,omitempty" yaml:"pending,omitempty"`
	Errors  []schema.FieldError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Change is one entry of a value diff.
type Change struct {
	Key string `json:"key" yaml:"key"`
	Old any    `json:"old" yaml:"old"`
	New any    `json:"new" yaml:"new"`
}

// Describe lists the parameters of s in declaration order.
func Describe(s *schema.Schema) []ParameterInfo {
	params := s.Parameters()
	out := make([]ParameterInfo, 0, len(params))
	for _, p := range params {
		info := ParameterInfo{
			Key:  string(p.Key()),
			Kind: p.ExpectedKind().String(),
		}
		if def, ok := p.DefaultValue(); ok {
			info.Default = def.Any()
			info.HasDefault = true
		}
		if l, ok := p.(schema.Labeler); ok {
			info.Label = l.Label()
		}
		if tr, ok := p.(schema.Trigger); ok {
			info.Action = tr.IsAction()
		}
		if e := p.VisibleWhen(); e != nil {
			info.VisibleWhen = e.String()
		}
		if e := p.EnabledWhen(); e != nil {
			info.EnabledWhen = e.String()
		}
		for _, k := range dependencies(p) {
			info.DependsOn = append(info.DependsOn, string(k))
		}
		out = append(out, info)
	}
	return out
}

func dependencies(p schema.Parameter) []value.Key {
	seen := make(map[value.Key]struct{})
	var keys []value.Key
	add := func(ks []value.Key) {
		for _, k := range ks {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	add(p.Dependencies())
	add(expr.Dependencies(p.VisibleWhen()))
	add(expr.Dependencies(p.EnabledWhen()))
	value.SortKeys(keys)
	return keys
}

// View builds the view of key. The key must be declared.
func View(c *runtime.Context, key value.Key) (ParameterView, error) {
	v, err := c.Get(key)
	if err != nil {
		return ParameterView{}, err
	}
	st, err := c.State(key)
	if err != nil {
		return ParameterView{}, err
	}
	return ParameterView{
		Key:     string(key),
		Value:   v.Any(),
		Kind:    v.Kind().String(),
		Valid:   st.Valid,
		Dirty:   st.Dirty,
		Touched: st.Touched,
		Visible: c.IsVisible(key),
		Enabled: c.IsEnabled(key),
		Pending: c.Pending(key),
		Errors:  st.Errors,
	}, nil
}

// Views builds the view of every parameter in declaration order.
func Views(c *runtime.Context) []ParameterView {
	keys := c.Schema().Keys()
	out := make([]ParameterView, 0, len(keys))
	for _, k := range keys {
		if v, err := View(c, k); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// Changes flattens a diff, sorted by key. Added keys have a nil Old and
// removed keys a nil New.
func Changes(d snapshot.Diff) []Change {
	keys := d.Keys()
	out := make([]Change, 0, len(keys))
	for _, k := range keys {
		c := Change{Key: string(k)}
		if v, ok := d.Added[k]; ok {
			c.New = v.Any()
		}
		if v, ok := d.Removed[k]; ok {
			c.Old = v.Any()
		}
		if ch, ok := d.Changed[k]; ok {
			c.Old, c.New = ch.Old.Any(), ch.New.Any()
		}
		out = append(out, c)
	}
	return out
}
