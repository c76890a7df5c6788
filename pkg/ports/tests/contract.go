package tests

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/value"
)

// SchemaLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.SchemaLoader.
// want lists the keys the loaded schema must declare, in declaration order.
func SchemaLoaderContractTest(t *testing.T, loader ports.SchemaLoader, want []value.Key) {
	t.Helper()
	ctx := context.Background()

	// 1. Test LoadSchema (Success)
	t.Run("LoadSchema_Success", func(t *testing.T) {
		s, err := loader.LoadSchema(ctx)
		if err != nil {
			t.Fatalf("unexpected error loading schema: %v", err)
		}
		if s.Len() != len(want) {
			t.Fatalf("expected %d parameters, got %d", len(want), s.Len())
		}
		for i, key := range s.Keys() {
			if key != want[i] {
				t.Errorf("parameter %d: got %q, want %q", i, key, want[i])
			}
			if _, ok := s.Lookup(key); !ok {
				t.Errorf("parameter %q listed but not found", key)
			}
		}
	})

	// 2. Test LoadSchema (Repeatable)
	t.Run("LoadSchema_Repeatable", func(t *testing.T) {
		first, err := loader.LoadSchema(ctx)
		if err != nil {
			t.Fatalf("unexpected error loading schema: %v", err)
		}
		second, err := loader.LoadSchema(ctx)
		if err != nil {
			t.Fatalf("unexpected error reloading schema: %v", err)
		}
		if first.Len() != second.Len() {
			t.Errorf("reload changed the parameter count: %d != %d", first.Len(), second.Len())
		}
	})
}
