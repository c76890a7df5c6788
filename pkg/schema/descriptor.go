package schema

import (
	"context"

	"github.com/aretw0/tendril/pkg/expr"
	"github.com/aretw0/tendril/pkg/value"
	"golang.org/x/sync/errgroup"
)

// Transform rewrites a value into a valid shape. Transforms must be total.
type Transform func(v value.Value) value.Value

// Validator checks a value without blocking. A nil return accepts it.
type Validator func(v value.Value) error

// AsyncValidator checks a value and may block, e.g. on a remote lookup.
type AsyncValidator func(ctx context.Context, v value.Value) error

// Descriptor is the concrete Parameter built by Define. It is immutable once
// built and safe to share between goroutines.
type Descriptor struct {
	key        value.Key
	kind       value.Kind
	label      string
	def        value.Value
	hasDefault bool
	nullable   bool
	action     bool
	transforms []Transform
	validators []Validator
	async      []AsyncValidator
	visible    expr.Expr
	enabled    expr.Expr
	deps       []value.Key
}

// Option configures a Descriptor.
type Option func(*Descriptor)

// Define builds a descriptor for key holding values of kind.
func Define(key value.Key, kind value.Kind, opts ...Option) *Descriptor {
	d := &Descriptor{key: key, kind: kind}
	for _, opt := range opts {
		opt(d)
	}
	if d.hasDefault {
		d.def = d.widen(d.def)
	}
	return d
}

// Default declares the value reset restores.
func Default(v value.Value) Option {
	return func(d *Descriptor) {
		d.def = v
		d.hasDefault = true
	}
}

// Transforms appends to the transform chain, applied in order.
func Transforms(ts ...Transform) Option {
	return func(d *Descriptor) { d.transforms = append(d.transforms, ts...) }
}

// Validators appends synchronous validators, run in order.
func Validators(vs ...Validator) Option {
	return func(d *Descriptor) { d.validators = append(d.validators, vs...) }
}

// AsyncValidators appends asynchronous validators, run concurrently.
func AsyncValidators(vs ...AsyncValidator) Option {
	return func(d *Descriptor) { d.async = append(d.async, vs...) }
}

// Visible sets the visibility condition.
func Visible(e expr.Expr) Option {
	return func(d *Descriptor) { d.visible = e }
}

// Enabled sets the enablement condition.
func Enabled(e expr.Expr) Option {
	return func(d *Descriptor) { d.enabled = e }
}

// DependsOn declares extra reactive dependencies.
func DependsOn(keys ...value.Key) Option {
	return func(d *Descriptor) { d.deps = append(d.deps, keys...) }
}

// Nullable lets the parameter hold Null whatever its kind.
func Nullable() Option {
	return func(d *Descriptor) { d.nullable = true }
}

// AsAction marks the parameter as a triggerable action.
func AsAction() Option {
	return func(d *Descriptor) { d.action = true }
}

// Label sets the display label.
func Label(label string) Option {
	return func(d *Descriptor) { d.label = label }
}

func (d *Descriptor) Key() value.Key           { return d.key }
func (d *Descriptor) ExpectedKind() value.Kind { return d.kind }
func (d *Descriptor) Label() string            { return d.label }
func (d *Descriptor) AcceptsNull() bool        { return d.nullable }
func (d *Descriptor) IsAction() bool           { return d.action }
func (d *Descriptor) VisibleWhen() expr.Expr   { return d.visible }
func (d *Descriptor) EnabledWhen() expr.Expr   { return d.enabled }

func (d *Descriptor) DefaultValue() (value.Value, bool) {
	return d.def, d.hasDefault
}

func (d *Descriptor) Dependencies() []value.Key {
	out := make([]value.Key, len(d.deps))
	copy(out, d.deps)
	return out
}

// Transform widens Int to Float for float parameters, then applies the chain.
func (d *Descriptor) Transform(v value.Value) value.Value {
	v = d.widen(v)
	for _, t := range d.transforms {
		v = t(v)
	}
	return v
}

func (d *Descriptor) widen(v value.Value) value.Value {
	if d.kind == value.KindFloat && v.Kind() == value.KindInt {
		i, _ := v.AsInt()
		return value.Float(float64(i))
	}
	return v
}

// ValidateSync runs every validator and returns all failures.
func (d *Descriptor) ValidateSync(v value.Value) []FieldError {
	var errs []FieldError
	for _, validate := range d.validators {
		if err := validate(v); err != nil {
			errs = append(errs, NewFieldError(d.key, err))
		}
	}
	return errs
}

// ValidateAsync runs the asynchronous validators concurrently and joins them.
// Failures keep declaration order.
func (d *Descriptor) ValidateAsync(ctx context.Context, v value.Value) []FieldError {
	if len(d.async) == 0 {
		return nil
	}
	results := make([]error, len(d.async))
	var g errgroup.Group
	for i, validate := range d.async {
		g.Go(func() error {
			results[i] = validate(ctx, v)
			return nil
		})
	}
	_ = g.Wait()

	var errs []FieldError
	for _, err := range results {
		if err != nil {
			errs = append(errs, NewFieldError(d.key, err))
		}
	}
	return errs
}

// HasAsync reports whether any asynchronous validator is declared.
func (d *Descriptor) HasAsync() bool { return len(d.async) > 0 }
