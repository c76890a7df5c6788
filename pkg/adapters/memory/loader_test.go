package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	contract "github.com/aretw0/tendril/pkg/ports/tests"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/stretchr/testify/assert"
)

func TestInMemoryLoader_Contract(t *testing.T) {
	loader := memory.NewLoader(
		schema.Define("width", value.KindInt, schema.Default(value.Int(10))),
		schema.Define("title", value.KindText),
	)
	contract.SchemaLoaderContractTest(t, loader, []value.Key{"width", "title"})
}

func TestInMemoryLoader_Specs(t *testing.T) {
	loader := memory.NewFromSpecs([]map[string]any{
		{"key": "opacity", "kind": "float", "default": 1.0, "transforms": []any{map[string]any{"clamp": map[string]any{"min": 0, "max": 1}}}},
		{"key": "email", "kind": "text", "validators": []any{"required", "email"}},
	}, nil)
	contract.SchemaLoaderContractTest(t, loader, []value.Key{"opacity", "email"})

	bad := memory.NewFromSpecs([]map[string]any{{"key": "x", "kind": "matrix"}}, nil)
	_, err := bad.LoadSchema(context.Background())
	assert.Error(t, err)
}
