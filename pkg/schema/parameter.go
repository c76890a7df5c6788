package schema

import (
	"context"

	"github.com/aretw0/tendril/pkg/expr"
	"github.com/aretw0/tendril/pkg/value"
)

// Parameter is the contract a runtime instance consumes from one schema entry.
type Parameter interface {
	Key() value.Key
	// ExpectedKind is the kind committed values must have. KindAny accepts all.
	ExpectedKind() value.Kind
	// DefaultValue reports false when no default was declared.
	DefaultValue() (value.Value, bool)
	// Transform is total: it always returns a value and never fails.
	Transform(v value.Value) value.Value
	// ValidateSync never blocks.
	ValidateSync(v value.Value) []FieldError
	// ValidateAsync may block until ctx is done.
	ValidateAsync(ctx context.Context, v value.Value) []FieldError
	// Dependencies lists keys whose change requires re-evaluating this
	// parameter, in addition to those referenced by its conditions.
	Dependencies() []value.Key
	VisibleWhen() expr.Expr
	EnabledWhen() expr.Expr
}

// NullAccepter is implemented by parameters that may hold Null regardless of
// their expected kind.
type NullAccepter interface {
	AcceptsNull() bool
}

// Trigger is implemented by parameters that act as actions (buttons) rather
// than data holders.
type Trigger interface {
	IsAction() bool
}

// Labeler is implemented by parameters carrying a display label.
type Labeler interface {
	Label() string
}

// CheckKind reports whether v may be committed to p.
// Null is accepted for KindNull and KindAny, or when p accepts null. Int is
// accepted where Float is expected.
func CheckKind(p Parameter, v value.Value) bool {
	want := p.ExpectedKind()
	got := v.Kind()
	switch {
	case want == value.KindAny, want == got:
		return true
	case got == value.KindNull:
		if n, ok := p.(NullAccepter); ok {
			return n.AcceptsNull()
		}
		return false
	case want == value.KindFloat && got == value.KindInt:
		return true
	default:
		return false
	}
}

// IsAction reports whether p is an action parameter.
func IsAction(p Parameter) bool {
	t, ok := p.(Trigger)
	return ok && t.IsAction()
}

// LabelOf returns the display label of p, or its key.
func LabelOf(p Parameter) string {
	if l, ok := p.(Labeler); ok && l.Label() != "" {
		return l.Label()
	}
	return string(p.Key())
}
