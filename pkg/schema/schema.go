package schema

import (
	"errors"
	"fmt"

	"github.com/aretw0/tendril/pkg/value"
)

// Schema is an immutable, ordered catalogue of parameters. A *Schema is
// shared read-only by every runtime instance bound to it.
type Schema struct {
	params []Parameter
	index  map[value.Key]int
}

// New builds a schema. Keys must be unique and non-empty, and declared
// defaults must pass the kind check of their parameter.
func New(params ...Parameter) (*Schema, error) {
	s := &Schema{
		params: make([]Parameter, 0, len(params)),
		index:  make(map[value.Key]int, len(params)),
	}
	var errs []error
	for i, p := range params {
		if p == nil {
			errs = append(errs, fmt.Errorf("parameter %d is nil", i))
			continue
		}
		key := p.Key()
		if key == "" {
			errs = append(errs, fmt.Errorf("parameter %d has an empty key", i))
			continue
		}
		if _, dup := s.index[key]; dup {
			errs = append(errs, fmt.Errorf("duplicate parameter %q", key))
			continue
		}
		if def, ok := p.DefaultValue(); ok && !CheckKind(p, def) {
			errs = append(errs, fmt.Errorf("parameter %q: default of kind %s does not match %s",
				key, def.Kind(), p.ExpectedKind()))
		}
		s.index[key] = len(s.params)
		s.params = append(s.params, p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

// MustNew is New panicking on error, for schemas declared in code.
func MustNew(params ...Parameter) *Schema {
	s, err := New(params...)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the parameter for key.
func (s *Schema) Lookup(key value.Key) (Parameter, bool) {
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.params[i], true
}

// Keys returns the keys in declaration order.
func (s *Schema) Keys() []value.Key {
	keys := make([]value.Key, len(s.params))
	for i, p := range s.params {
		keys[i] = p.Key()
	}
	return keys
}

// Parameters returns the parameters in declaration order.
func (s *Schema) Parameters() []Parameter {
	out := make([]Parameter, len(s.params))
	copy(out, s.params)
	return out
}

func (s *Schema) Len() int { return len(s.params) }

// Defaults collects the declared default of every parameter that has one.
func (s *Schema) Defaults() value.Map {
	out := make(value.Map, len(s.params))
	for _, p := range s.params {
		if def, ok := p.DefaultValue(); ok {
			out[p.Key()] = def
		}
	}
	return out
}
