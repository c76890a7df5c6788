package value

import (
	"encoding/json"
	"fmt"
)

// envelope keeps the kind next to the payload so Int and Float survive a
// round trip through JSON.
type envelope struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.kind {
	case KindNull:
		return json.Marshal(envelope{Kind: v.kind.String()})
	case KindBool:
		payload = v.b
	case KindInt:
		payload = v.i
	case KindFloat:
		payload = v.f
	case KindText, KindExpression:
		payload = v.s
	case KindBinary:
		payload = v.bin
	case KindArray:
		payload = v.arr
	case KindObject:
		payload = v.obj
	default:
		return nil, fmt.Errorf("marshal value: invalid kind %d", v.kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Kind: v.kind.String(), Value: raw})
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}
	kind, err := ParseKind(env.Kind)
	if err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}

	switch kind {
	case KindNull, KindAny:
		*v = Null()
	case KindBool:
		var b bool
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return fmt.Errorf("unmarshal bool: %w", err)
		}
		*v = Bool(b)
	case KindInt:
		var i int64
		if err := json.Unmarshal(env.Value, &i); err != nil {
			return fmt.Errorf("unmarshal int: %w", err)
		}
		*v = Int(i)
	case KindFloat:
		var f float64
		if err := json.Unmarshal(env.Value, &f); err != nil {
			return fmt.Errorf("unmarshal float: %w", err)
		}
		*v = Float(f)
	case KindText:
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return fmt.Errorf("unmarshal text: %w", err)
		}
		*v = Text(s)
	case KindExpression:
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return fmt.Errorf("unmarshal expression: %w", err)
		}
		*v = Expression(s)
	case KindBinary:
		var b []byte
		if err := json.Unmarshal(env.Value, &b); err != nil {
			return fmt.Errorf("unmarshal binary: %w", err)
		}
		*v = Value{kind: KindBinary, bin: b}
	case KindArray:
		var elems []Value
		if err := json.Unmarshal(env.Value, &elems); err != nil {
			return fmt.Errorf("unmarshal array: %w", err)
		}
		if elems == nil {
			elems = []Value{}
		}
		*v = Value{kind: KindArray, arr: elems}
	case KindObject:
		var fields map[Key]Value
		if err := json.Unmarshal(env.Value, &fields); err != nil {
			return fmt.Errorf("unmarshal object: %w", err)
		}
		if fields == nil {
			fields = map[Key]Value{}
		}
		*v = Value{kind: KindObject, obj: fields}
	}
	return nil
}
