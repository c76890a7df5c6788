package expr

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/value"
)

// Env is what an expression is evaluated against: the current values and the
// validity flags maintained by the mutation pipeline.
type Env interface {
	Get(key value.Key) (value.Value, bool)
	IsValid(key value.Key) bool
}

// Expr is a boolean expression over parameter values.
// The set of node types is closed.
type Expr interface {
	eval(env Env) bool
	deps(into map[value.Key]struct{})
	String() string
}

// Eq is true when the value of Key equals Value. A missing key reads as Null.
type Eq struct {
	Key   value.Key
	Value value.Value
}

// Ne is the negation of Eq.
type Ne struct {
	Key   value.Key
	Value value.Value
}

// IsSet is true when Key is present and not Null.
type IsSet struct{ Key value.Key }

// IsEmpty is true when Key is missing, Null, empty Text, an empty Array or an
// empty Object. Numeric zero is not empty.
type IsEmpty struct{ Key value.Key }

// IsTrue is true only for Bool(true).
type IsTrue struct{ Key value.Key }

// Lt, Le, Gt and Ge compare numerically. A non-numeric side yields false.
type Lt struct {
	Key   value.Key
	Value value.Value
}

type Le struct {
	Key   value.Key
	Value value.Value
}

type Gt struct {
	Key   value.Key
	Value value.Value
}

type Ge struct {
	Key   value.Key
	Value value.Value
}

// OneOf is true when the value of Key structurally equals one of Values.
type OneOf struct {
	Key    value.Key
	Values []value.Value
}

// IsValid reads the validity flag of Key.
type IsValid struct{ Key value.Key }

// And is true when every operand is true. And{} is true.
type And struct{ Exprs []Expr }

// Or is true when any operand is true. Or{} is false.
type Or struct{ Exprs []Expr }

// Not negates its operand.
type Not struct{ Expr Expr }

// Eval evaluates e against env. A nil expression is true, which lets callers
// treat "no condition" as "always visible".
func Eval(e Expr, env Env) bool {
	if e == nil {
		return true
	}
	return e.eval(env)
}

// Dependencies returns every key referenced by e, sorted and deduplicated.
func Dependencies(e Expr) []value.Key {
	if e == nil {
		return nil
	}
	set := make(map[value.Key]struct{})
	e.deps(set)
	keys := make([]value.Key, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	value.SortKeys(keys)
	return keys
}

func lookup(env Env, key value.Key) value.Value {
	v, ok := env.Get(key)
	if !ok {
		return value.Null()
	}
	return v
}

func compare(env Env, key value.Key, rhs value.Value, accept func(int) bool) bool {
	c, ok := value.Compare(lookup(env, key), rhs)
	return ok && accept(c)
}

func (e Eq) eval(env Env) bool { return value.Equal(lookup(env, e.Key), e.Value) }
func (e Ne) eval(env Env) bool { return !value.Equal(lookup(env, e.Key), e.Value) }

func (e IsSet) eval(env Env) bool {
	v, ok := env.Get(e.Key)
	return ok && !v.IsNull()
}

func (e IsEmpty) eval(env Env) bool { return lookup(env, e.Key).IsEmpty() }

func (e IsTrue) eval(env Env) bool {
	b, ok := lookup(env, e.Key).AsBool()
	return ok && b
}

func (e Lt) eval(env Env) bool {
	return compare(env, e.Key, e.Value, func(c int) bool { return c < 0 })
}

func (e Le) eval(env Env) bool {
	return compare(env, e.Key, e.Value, func(c int) bool { return c <= 0 })
}

func (e Gt) eval(env Env) bool {
	return compare(env, e.Key, e.Value, func(c int) bool { return c > 0 })
}

func (e Ge) eval(env Env) bool {
	return compare(env, e.Key, e.Value, func(c int) bool { return c >= 0 })
}

func (e OneOf) eval(env Env) bool {
	v := lookup(env, e.Key)
	for _, candidate := range e.Values {
		if value.Equal(v, candidate) {
			return true
		}
	}
	return false
}

func (e IsValid) eval(env Env) bool { return env.IsValid(e.Key) }

func (e And) eval(env Env) bool {
	for _, sub := range e.Exprs {
		if !Eval(sub, env) {
			return false
		}
	}
	return true
}

func (e Or) eval(env Env) bool {
	for _, sub := range e.Exprs {
		if Eval(sub, env) {
			return true
		}
	}
	return false
}

func (e Not) eval(env Env) bool { return !Eval(e.Expr, env) }

func (e Eq) deps(into map[value.Key]struct{})      { into[e.Key] = struct{}{} }
func (e Ne) deps(into map[value.Key]struct{})      { into[e.Key] = struct{}{} }
func (e IsSet) deps(into map[value.Key]struct{})   { into[e.Key] = struct{}{} }
func (e IsEmpty) deps(into map[value.Key]struct{}) { into[e.Key] = struct{}{} }
func (e IsTrue) deps(into map[value.Key]struct{})  { into[e.Key] = struct{}{} }
func (e Lt) deps(into map[value.Key]struct{})      { into[e.Key] = struct{}{} }
func (e Le) deps(into map[value.Key]struct{})      { into[e.Key] = struct{}{} }
func (e Gt) deps(into map[value.Key]struct{})      { into[e.Key] = struct{}{} }
func (e Ge) deps(into map[value.Key]struct{})      { into[e.Key] = struct{}{} }
func (e OneOf) deps(into map[value.Key]struct{})   { into[e.Key] = struct{}{} }
func (e IsValid) deps(into map[value.Key]struct{}) { into[e.Key] = struct{}{} }

func (e And) deps(into map[value.Key]struct{}) {
	for _, sub := range e.Exprs {
		if sub != nil {
			sub.deps(into)
		}
	}
}

func (e Or) deps(into map[value.Key]struct{}) {
	for _, sub := range e.Exprs {
		if sub != nil {
			sub.deps(into)
		}
	}
}

func (e Not) deps(into map[value.Key]struct{}) {
	if e.Expr != nil {
		e.Expr.deps(into)
	}
}

func (e Eq) String() string      { return fmt.Sprintf("%s == %s", e.Key, e.Value) }
func (e Ne) String() string      { return fmt.Sprintf("%s != %s", e.Key, e.Value) }
func (e IsSet) String() string   { return fmt.Sprintf("is_set(%s)", e.Key) }
func (e IsEmpty) String() string { return fmt.Sprintf("is_empty(%s)", e.Key) }
func (e IsTrue) String() string  { return fmt.Sprintf("is_true(%s)", e.Key) }
func (e Lt) String() string      { return fmt.Sprintf("%s < %s", e.Key, e.Value) }
func (e Le) String() string      { return fmt.Sprintf("%s <= %s", e.Key, e.Value) }
func (e Gt) String() string      { return fmt.Sprintf("%s > %s", e.Key, e.Value) }
func (e Ge) String() string      { return fmt.Sprintf("%s >= %s", e.Key, e.Value) }
func (e IsValid) String() string { return fmt.Sprintf("is_valid(%s)", e.Key) }

func (e OneOf) String() string {
	return fmt.Sprintf("%s in %s", e.Key, value.Array(e.Values...))
}

func (e And) String() string { return join("and", e.Exprs) }
func (e Or) String() string  { return join("or", e.Exprs) }

func (e Not) String() string {
	if e.Expr == nil {
		return "not(true)"
	}
	return "not(" + e.Expr.String() + ")"
}

func join(op string, exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, sub := range exprs {
		if sub == nil {
			parts[i] = "true"
			continue
		}
		parts[i] = sub.String()
	}
	return op + "(" + strings.Join(parts, ", ") + ")"
}

// MapEnv is an Env backed by plain maps. Keys absent from Validity report
// DefaultValid.
type MapEnv struct {
	Values       value.Map
	Validity     map[value.Key]bool
	DefaultValid bool
}

func (m MapEnv) Get(key value.Key) (value.Value, bool) {
	v, ok := m.Values[key]
	return v, ok
}

func (m MapEnv) IsValid(key value.Key) bool {
	if valid, ok := m.Validity[key]; ok {
		return valid
	}
	return m.DefaultValid
}
