package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/pkg/schema"
)

// Loader implements ports.SchemaLoader from parameters held in memory.
type Loader struct {
	params  []schema.Parameter
	raw     []map[string]any
	catalog *schema.Catalog
}

// NewLoader creates a Loader serving the given parameters.
func NewLoader(params ...schema.Parameter) *Loader {
	return &Loader{params: params}
}

// NewFromSpecs creates a Loader from parameter documents, as decoded from
// YAML or JSON. Named transforms and validators are resolved in catalog,
// which may be nil.
// This handles decoding automatically, improving DX for tests.
func NewFromSpecs(raw []map[string]any, catalog *schema.Catalog) *Loader {
	return &Loader{raw: raw, catalog: catalog}
}

// LoadSchema builds the schema.
func (l *Loader) LoadSchema(ctx context.Context) (*schema.Schema, error) {
	if l.raw != nil {
		s, err := schema.FromMaps(l.raw, l.catalog)
		if err != nil {
			return nil, fmt.Errorf("memory loader: %w", err)
		}
		return s, nil
	}
	return schema.New(l.params...)
}
