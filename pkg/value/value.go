package value

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
)

// Key identifies a parameter within a schema.
type Key string

// Kind is the runtime tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindArray
	KindObject
	KindBinary
	KindExpression

	// KindAny is only meaningful as an expected kind: every value conforms to it.
	KindAny
)

var kindNames = [...]string{
	KindNull:       "null",
	KindBool:       "bool",
	KindInt:        "int",
	KindFloat:      "float",
	KindText:       "text",
	KindArray:      "array",
	KindObject:     "object",
	KindBinary:     "binary",
	KindExpression: "expression",
	KindAny:        "any",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind converts a kind name (as written in schema files) to a Kind.
// Common aliases such as "string", "number" and "list" are accepted.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "null", "none", "action":
		return KindNull, nil
	case "bool", "boolean":
		return KindBool, nil
	case "int", "integer", "int64":
		return KindInt, nil
	case "float", "number", "float64", "double":
		return KindFloat, nil
	case "text", "string":
		return KindText, nil
	case "array", "list", "slice":
		return KindArray, nil
	case "object", "map", "dict":
		return KindObject, nil
	case "binary", "bytes":
		return KindBinary, nil
	case "expression", "expr", "template":
		return KindExpression, nil
	case "any", "":
		return KindAny, nil
	default:
		return KindAny, fmt.Errorf("unsupported kind: %s", name)
	}
}

// Value is an immutable tagged union. Array, Object and Binary values share
// their backing storage between copies, so copying a Value is O(1). Every
// constructor and every With* helper copies before writing.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string
	arr   []Value
	obj   map[Key]Value
	bin   []byte
	cache *atomic.Value
}

// compiled wraps whatever a template engine caches for an Expression value.
type compiled struct{ v any }

func Null() Value           { return Value{kind: KindNull} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Int(i int64) Value     { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func Text(s string) Value   { return Value{kind: KindText, s: s} }

// Array builds an Array value from a private copy of elems.
func Array(elems ...Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{kind: KindArray, arr: cp}
}

// Object builds an Object value from a private copy of fields.
func Object(fields map[Key]Value) Value {
	cp := make(map[Key]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindObject, obj: cp}
}

// Binary builds a Binary value from a private copy of b.
func Binary(b []byte) Value {
	return Value{kind: KindBinary, bin: bytes.Clone(b)}
}

// Expression builds an Expression value holding template text. The compiled
// form is cached lazily by whoever evaluates it and is shared by all copies.
func Expression(template string) Value {
	return Value{kind: KindExpression, s: template, cache: new(atomic.Value)}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool) {
	return v.f, v.kind == KindFloat
}
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// Number returns the numeric value of an Int or Float.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Template returns the template text of an Expression value.
func (v Value) Template() (string, bool) { return v.s, v.kind == KindExpression }

// Compiled returns the cached compiled form of an Expression value.
func (v Value) Compiled() (any, bool) {
	if v.kind != KindExpression || v.cache == nil {
		return nil, false
	}
	c, ok := v.cache.Load().(compiled)
	if !ok {
		return nil, false
	}
	return c.v, true
}

// SetCompiled stores the compiled form of an Expression value. It is visible
// to every copy of v. Calls on other kinds are ignored.
func (v Value) SetCompiled(c any) {
	if v.kind != KindExpression || v.cache == nil {
		return
	}
	v.cache.Store(compiled{v: c})
}

// Len returns the number of elements, fields, bytes or runes.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	case KindBinary:
		return len(v.bin)
	case KindText:
		return len([]rune(v.s))
	default:
		return 0
	}
}

// Index returns the i-th element of an Array.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i], true
}

// Elements returns a copy of an Array's elements.
func (v Value) Elements() []Value {
	if v.kind != KindArray {
		return nil
	}
	cp := make([]Value, len(v.arr))
	copy(cp, v.arr)
	return cp
}

// Field returns a field of an Object.
func (v Value) Field(k Key) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[k]
	return f, ok
}

// Fields returns a copy of an Object's fields.
func (v Value) Fields() map[Key]Value {
	if v.kind != KindObject {
		return nil
	}
	cp := make(map[Key]Value, len(v.obj))
	for k, f := range v.obj {
		cp[k] = f
	}
	return cp
}

// FieldKeys returns an Object's field names in sorted order.
func (v Value) FieldKeys() []Key {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]Key, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Bytes returns a copy of a Binary value.
func (v Value) Bytes() []byte {
	if v.kind != KindBinary {
		return nil
	}
	return bytes.Clone(v.bin)
}

// WithElement returns a copy of the Array with element i replaced.
func (v Value) WithElement(i int, elem Value) (Value, error) {
	if v.kind != KindArray {
		return v, fmt.Errorf("with element: not an array (%s)", v.kind)
	}
	if i < 0 || i >= len(v.arr) {
		return v, fmt.Errorf("with element: index %d out of range [0,%d)", i, len(v.arr))
	}
	out := Array(v.arr...)
	out.arr[i] = elem
	return out, nil
}

// Append returns a copy of the Array with elems appended.
func (v Value) Append(elems ...Value) (Value, error) {
	if v.kind != KindArray {
		return v, fmt.Errorf("append: not an array (%s)", v.kind)
	}
	cp := make([]Value, 0, len(v.arr)+len(elems))
	cp = append(cp, v.arr...)
	cp = append(cp, elems...)
	return Value{kind: KindArray, arr: cp}, nil
}

// WithField returns a copy of the Object with field k set.
func (v Value) WithField(k Key, f Value) (Value, error) {
	if v.kind != KindObject {
		return v, fmt.Errorf("with field: not an object (%s)", v.kind)
	}
	out := Object(v.obj)
	out.obj[k] = f
	return out, nil
}

// WithoutField returns a copy of the Object without field k.
func (v Value) WithoutField(k Key) (Value, error) {
	if v.kind != KindObject {
		return v, fmt.Errorf("without field: not an object (%s)", v.kind)
	}
	out := Object(v.obj)
	delete(out.obj, k)
	return out, nil
}

// IsEmpty reports whether v is Null, empty Text, an empty Array or an empty
// Object. Numbers, booleans, binaries and expressions are never empty.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return v.s == ""
	case KindArray:
		return len(v.arr) == 0
	case KindObject:
		return len(v.obj) == 0
	default:
		return false
	}
}

// Equal reports structural equality. Values of different kinds are never
// equal, so Int(1) != Float(1). The compiled cache of expressions is ignored.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f || (math.IsNaN(a.f) && math.IsNaN(b.f))
	case KindText, KindExpression:
		return a.s == b.s
	case KindBinary:
		return bytes.Equal(a.bin, b.bin)
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for k, av := range a.obj {
			bv, ok := b.obj[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// Equal is the method form of the package-level Equal.
func (v Value) Equal(other Value) bool { return Equal(v, other) }

// Compare orders two numeric values. ok is false when either side is not a number.
func Compare(a, b Value) (cmp int, ok bool) {
	x, okA := a.Number()
	y, okB := b.Number()
	if !okA || !okB || math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	default:
		return 0, true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return strconv.Quote(v.s)
	case KindExpression:
		return "expr(" + strconv.Quote(v.s) + ")"
	case KindBinary:
		return fmt.Sprintf("binary(%d bytes)", len(v.bin))
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		keys := v.FieldKeys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = string(k) + ": " + v.obj[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "invalid"
}
