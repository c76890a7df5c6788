package value

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// FromAny converts a plain Go value (as produced by YAML, JSON or
// mapstructure decoding) to a Value.
func FromAny(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint:
		return Int(int64(v)), nil
	case uint64:
		return Int(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", v.String(), err)
		}
		return Float(f), nil
	case string:
		return Text(v), nil
	case []byte:
		return Binary(v), nil
	case []any:
		elems := make([]Value, len(v))
		for i, e := range v {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return Value{kind: KindArray, arr: elems}, nil
	case map[string]any:
		fields := make(map[Key]Value, len(v))
		for k, e := range v {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			fields[Key(k)] = ev
		}
		return Value{kind: KindObject, obj: fields}, nil
	case map[Key]Value:
		return Object(v), nil
	}

	// Typed slices and maps ([]string, map[string]int, ...).
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		elems := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev, err := FromAny(rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return Value{kind: KindArray, arr: elems}, nil
	case reflect.Map:
		fields := make(map[Key]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			ev, err := FromAny(iter.Value().Interface())
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			fields[Key(k)] = ev
		}
		return Value{kind: KindObject, obj: fields}, nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", raw)
}

// MustFromAny is FromAny for literals known to be convertible.
func MustFromAny(raw any) Value {
	v, err := FromAny(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Any converts v back to a plain Go value. Expressions become their template
// text and Binary becomes []byte.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindText, KindExpression:
		return v.s
	case KindBinary:
		return v.Bytes()
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Any()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[string(k)] = e.Any()
		}
		return out
	default:
		return nil
	}
}

// Map is a key to value mapping, used for value-sets, snapshots and diffs.
type Map map[Key]Value

// Clone returns a shallow copy. Values themselves are immutable.
func (m Map) Clone() Map {
	cp := make(Map, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Equal reports whether both maps hold the same keys with equal values.
func (m Map) Equal(other Map) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		o, ok := other[k]
		if !ok || !Equal(v, o) {
			return false
		}
	}
	return true
}

// Keys returns the keys in sorted order.
func (m Map) Keys() []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// Plain converts the map to plain Go values.
func (m Map) Plain() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[string(k)] = v.Any()
	}
	return out
}

// SortKeys sorts keys in place.
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}
