package schema

import (
	"fmt"
	"regexp"

	"github.com/aretw0/tendril/pkg/expr"
	"github.com/aretw0/tendril/pkg/registry"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/mitchellh/mapstructure"
)

// Spec is the document form of a parameter, as written in schema files.
//
//	key: opacity
//	kind: float
//	default: 1
//	transforms:
//	  - clamp: {min: 0, max: 1}
//	  - round: 2
//	validators:
//	  - required
//	  - range: {min: 0, max: 1}
//	visible_when: {eq: [mode, advanced]}
type Spec struct {
	Key         string   `mapstructure:"key" json:"key" yaml:"key"`
	Kind        string   `mapstructure:"kind" json:"kind" yaml:"kind"`
	Label       string   `mapstructure:"label" json:"label,omitempty" yaml:"label,omitempty"`
	Description string   `mapstructure:"description" json:"description,omitempty" yaml:"description,omitempty"`
	Default     any      `mapstructure:"default" json:"default,omitempty" yaml:"default,omitempty"`
	Nullable    bool     `mapstructure:"nullable" json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Action      bool     `mapstructure:"action" json:"action,omitempty" yaml:"action,omitempty"`
	DependsOn   []string `mapstructure:"depends_on" json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	VisibleWhen any      `mapstructure:"visible_when" json:"visible_when,omitempty" yaml:"visible_when,omitempty"`
	EnabledWhen any      `mapstructure:"enabled_when" json:"enabled_when,omitempty" yaml:"enabled_when,omitempty"`
	Transforms  []any    `mapstructure:"transforms" json:"transforms,omitempty" yaml:"transforms,omitempty"`
	Validators  []any    `mapstructure:"validators" json:"validators,omitempty" yaml:"validators,omitempty"`
	Async       []string `mapstructure:"async" json:"async,omitempty" yaml:"async,omitempty"`
}

// Catalog resolves transforms and validators referenced by name from specs.
type Catalog struct {
	Transforms *registry.Registry[Transform]
	Validators *registry.Registry[Validator]
	Async      *registry.Registry[AsyncValidator]
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		Transforms: registry.New[Transform]("transform"),
		Validators: registry.New[Validator]("validator"),
		Async:      registry.New[AsyncValidator]("async validator"),
	}
}

type bounds struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// DecodeSpec decodes a raw map (from YAML, JSON or front matter) into a Spec.
func DecodeSpec(raw map[string]any) (Spec, error) {
	var s Spec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return s, err
	}
	if err := dec.Decode(raw); err != nil {
		return s, fmt.Errorf("decode parameter: %w", err)
	}
	return s, nil
}

// Build turns the spec into a Descriptor. catalog may be nil when the spec
// only uses built-ins.
func (s Spec) Build(catalog *Catalog) (*Descriptor, error) {
	if s.Key == "" {
		return nil, fmt.Errorf("parameter: missing key")
	}
	kind, err := value.ParseKind(s.Kind)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", s.Key, err)
	}
	if catalog == nil {
		catalog = NewCatalog()
	}

	var opts []Option
	if s.Default != nil {
		def, err := value.FromAny(s.Default)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: default: %w", s.Key, err)
		}
		opts = append(opts, Default(def))
	} else if kind == value.KindNull || s.Nullable {
		opts = append(opts, Default(value.Null()))
	}
	if s.Label != "" {
		opts = append(opts, Label(s.Label))
	}
	if s.Nullable {
		opts = append(opts, Nullable())
	}
	if s.Action {
		opts = append(opts, AsAction())
	}
	for _, dep := range s.DependsOn {
		opts = append(opts, DependsOn(value.Key(dep)))
	}
	if s.VisibleWhen != nil {
		e, err := expr.Decode(s.VisibleWhen)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: visible_when: %w", s.Key, err)
		}
		opts = append(opts, Visible(e))
	}
	if s.EnabledWhen != nil {
		e, err := expr.Decode(s.EnabledWhen)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: enabled_when: %w", s.Key, err)
		}
		opts = append(opts, Enabled(e))
	}
	for i, raw := range s.Transforms {
		t, err := buildTransform(raw, catalog)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: transforms[%d]: %w", s.Key, i, err)
		}
		opts = append(opts, Transforms(t))
	}
	for i, raw := range s.Validators {
		v, err := buildValidator(raw, catalog)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: validators[%d]: %w", s.Key, i, err)
		}
		opts = append(opts, Validators(v))
	}
	for _, name := range s.Async {
		v, err := catalog.Async.Get(name)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", s.Key, err)
		}
		opts = append(opts, AsyncValidators(v))
	}
	return Define(value.Key(s.Key), kind, opts...), nil
}

// entry splits a list item into its name and argument. Items are either a
// bare name or a single-entry map.
func entry(raw any) (string, any, error) {
	switch item := raw.(type) {
	case string:
		return item, nil, nil
	case map[string]any:
		if len(item) == 1 {
			for name, arg := range item {
				return name, arg, nil
			}
		}
	case map[any]any:
		if len(item) == 1 {
			for name, arg := range item {
				return fmt.Sprint(name), arg, nil
			}
		}
	}
	return "", nil, fmt.Errorf("want a name or a single-entry map, got %v", raw)
}

func decodeArg(arg any, out any) error {
	return mapstructure.WeakDecode(arg, out)
}

func buildTransform(raw any, catalog *Catalog) (Transform, error) {
	name, arg, err := entry(raw)
	if err != nil {
		return nil, err
	}
	switch name {
	case "clamp", "wrap":
		if arg == nil {
			return nil, fmt.Errorf("%s: want {min, max}", name)
		}
		var b bounds
		if err := decodeArg(arg, &b); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if b.Min > b.Max {
			return nil, fmt.Errorf("%s: min %g exceeds max %g", name, b.Min, b.Max)
		}
		if name == "clamp" {
			return Clamp(b.Min, b.Max), nil
		}
		return Wrap(b.Min, b.Max), nil
	case "round":
		var places int
		if arg != nil {
			if err := decodeArg(arg, &places); err != nil {
				return nil, fmt.Errorf("round: %w", err)
			}
		}
		return Round(places), nil
	case "trim_space", "trim":
		return TrimSpace(), nil
	case "lowercase":
		return Lowercase(), nil
	case "uppercase":
		return Uppercase(), nil
	case "int_from_float":
		return IntFromFloat(), nil
	case "func":
		var ref string
		if err := decodeArg(arg, &ref); err != nil {
			return nil, fmt.Errorf("func: %w", err)
		}
		return catalog.Transforms.Get(ref)
	default:
		return catalog.Transforms.Get(name)
	}
}

func buildValidator(raw any, catalog *Catalog) (Validator, error) {
	name, arg, err := entry(raw)
	if err != nil {
		return nil, err
	}
	switch name {
	case "required":
		return Required(), nil
	case "email":
		return Email(), nil
	case "min_length", "max_length", "min_items", "max_items":
		var n int
		if err := decodeArg(arg, &n); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		switch name {
		case "min_length":
			return MinLength(n), nil
		case "max_length":
			return MaxLength(n), nil
		case "min_items":
			return MinItems(n), nil
		default:
			return MaxItems(n), nil
		}
	case "pattern":
		var src string
		if err := decodeArg(arg, &src); err != nil {
			return nil, fmt.Errorf("pattern: %w", err)
		}
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("pattern: %w", err)
		}
		return Pattern(re), nil
	case "range":
		if arg == nil {
			return nil, fmt.Errorf("range: want {min, max}")
		}
		var b bounds
		if err := decodeArg(arg, &b); err != nil {
			return nil, fmt.Errorf("range: %w", err)
		}
		return Range(b.Min, b.Max), nil
	case "one_of":
		list, err := value.FromAny(arg)
		if err != nil || list.Kind() != value.KindArray {
			return nil, fmt.Errorf("one_of: want a list of values")
		}
		return OneOf(list.Elements()...), nil
	case "func":
		var ref string
		if err := decodeArg(arg, &ref); err != nil {
			return nil, fmt.Errorf("func: %w", err)
		}
		return catalog.Validators.Get(ref)
	default:
		return catalog.Validators.Get(name)
	}
}
