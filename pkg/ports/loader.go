package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/schema"
)

// SchemaLoader defines how instances obtain their schema.
// This allows the storage layer (Loam, files, memory) to be decoupled.
type SchemaLoader interface {
	// LoadSchema builds the schema. The result is immutable and may be
	// shared by every instance.
	LoadSchema(ctx context.Context) (*schema.Schema, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying schema changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
