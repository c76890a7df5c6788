package expr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/tendril/pkg/value"
)

// Decode builds an expression from its document form, as found in schema
// files. Each node is a single-entry map keyed by the operator:
//
//	and:
//	  - eq: [mode, advanced]
//	  - not: {is_empty: tags}
//	  - one_of: [unit, [px, em]]
//	  - gt: [width, 0]
//
// A bare string is shorthand for is_true.
func Decode(raw any) (Expr, error) {
	switch node := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return IsTrue{Key: value.Key(node)}, nil
	case map[string]any:
		return decodeMap(node)
	case map[any]any:
		converted := make(map[string]any, len(node))
		for k, v := range node {
			converted[fmt.Sprint(k)] = v
		}
		return decodeMap(converted)
	default:
		return nil, fmt.Errorf("expression: unexpected %T", raw)
	}
}

func decodeMap(node map[string]any) (Expr, error) {
	if len(node) != 1 {
		ops := make([]string, 0, len(node))
		for op := range node {
			ops = append(ops, op)
		}
		sort.Strings(ops)
		return nil, fmt.Errorf("expression: want exactly one operator, got %v", ops)
	}

	for op, arg := range node {
		switch strings.ToLower(op) {
		case "eq", "ne", "lt", "le", "gt", "ge":
			key, rhs, err := keyValuePair(op, arg)
			if err != nil {
				return nil, err
			}
			return comparison(strings.ToLower(op), key, rhs), nil
		case "is_set", "is_empty", "is_true", "is_valid":
			key, ok := arg.(string)
			if !ok {
				return nil, fmt.Errorf("expression %s: want a key, got %T", op, arg)
			}
			return unary(strings.ToLower(op), value.Key(key)), nil
		case "one_of", "in":
			return decodeOneOf(arg)
		case "and", "or":
			items, ok := arg.([]any)
			if !ok {
				return nil, fmt.Errorf("expression %s: want a list, got %T", op, arg)
			}
			exprs := make([]Expr, 0, len(items))
			for i, item := range items {
				sub, err := Decode(item)
				if err != nil {
					return nil, fmt.Errorf("%s[%d]: %w", op, i, err)
				}
				exprs = append(exprs, sub)
			}
			if strings.ToLower(op) == "and" {
				return And{Exprs: exprs}, nil
			}
			return Or{Exprs: exprs}, nil
		case "not":
			sub, err := Decode(arg)
			if err != nil {
				return nil, fmt.Errorf("not: %w", err)
			}
			return Not{Expr: sub}, nil
		default:
			return nil, fmt.Errorf("expression: unknown operator %q", op)
		}
	}
	return nil, nil
}

func keyValuePair(op string, arg any) (value.Key, value.Value, error) {
	pair, ok := arg.([]any)
	if !ok || len(pair) != 2 {
		return "", value.Value{}, fmt.Errorf("expression %s: want [key, value]", op)
	}
	key, ok := pair[0].(string)
	if !ok {
		return "", value.Value{}, fmt.Errorf("expression %s: key must be a string, got %T", op, pair[0])
	}
	rhs, err := value.FromAny(pair[1])
	if err != nil {
		return "", value.Value{}, fmt.Errorf("expression %s: %w", op, err)
	}
	return value.Key(key), rhs, nil
}

func decodeOneOf(arg any) (Expr, error) {
	pair, ok := arg.([]any)
	if !ok || len(pair) != 2 {
		return nil, fmt.Errorf("expression one_of: want [key, [values...]]")
	}
	key, ok := pair[0].(string)
	if !ok {
		return nil, fmt.Errorf("expression one_of: key must be a string, got %T", pair[0])
	}
	list, err := value.FromAny(pair[1])
	if err != nil {
		return nil, fmt.Errorf("expression one_of: %w", err)
	}
	if list.Kind() != value.KindArray {
		return nil, fmt.Errorf("expression one_of: want a list of values, got %s", list.Kind())
	}
	return OneOf{Key: value.Key(key), Values: list.Elements()}, nil
}

func comparison(op string, key value.Key, rhs value.Value) Expr {
	switch op {
	case "eq":
		return Eq{Key: key, Value: rhs}
	case "ne":
		return Ne{Key: key, Value: rhs}
	case "lt":
		return Lt{Key: key, Value: rhs}
	case "le":
		return Le{Key: key, Value: rhs}
	case "gt":
		return Gt{Key: key, Value: rhs}
	default:
		return Ge{Key: key, Value: rhs}
	}
}

func unary(op string, key value.Key) Expr {
	switch op {
	case "is_set":
		return IsSet{Key: key}
	case "is_empty":
		return IsEmpty{Key: key}
	case "is_true":
		return IsTrue{Key: key}
	default:
		return IsValid{Key: key}
	}
}
