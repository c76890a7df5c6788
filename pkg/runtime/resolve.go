package runtime

import (
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/template"
	"github.com/aretw0/tendril/pkg/value"
)

// Resolve returns the effective value of key. An Expression value is
// evaluated as a template over the other values, resolving the expressions
// it references first. Other values are returned as they are.
func (c *Context) Resolve(key value.Key) (value.Value, error) {
	if _, ok := c.schema.Lookup(key); !ok {
		return value.Value{}, domain.NotFound(key)
	}
	return c.resolve(key, make(map[value.Key]bool))
}

// ResolveAll resolves every value.
func (c *Context) ResolveAll() (value.Map, error) {
	out := make(value.Map, len(c.values))
	for _, key := range c.schema.Keys() {
		v, err := c.resolve(key, make(map[value.Key]bool))
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func (c *Context) resolve(key value.Key, visiting map[value.Key]bool) (value.Value, error) {
	v := c.values[key]
	if v.Kind() != value.KindExpression {
		return v, nil
	}
	if visiting[key] {
		return value.Value{}, fmt.Errorf("resolve %q: %w", key, domain.ErrCycle)
	}
	visiting[key] = true
	defer delete(visiting, key)

	refs, err := template.References(v)
	if err != nil {
		return value.Value{}, fmt.Errorf("resolve %q: %w", key, err)
	}
	vars := make(value.Map, len(refs))
	for _, ref := range refs {
		if _, ok := c.values[ref]; !ok {
			continue
		}
		rv, err := c.resolve(ref, visiting)
		if err != nil {
			return value.Value{}, err
		}
		vars[ref] = rv
	}
	out, err := template.Evaluate(v, vars)
	if err != nil {
		return value.Value{}, fmt.Errorf("resolve %q: %w", key, err)
	}
	return out, nil
}
