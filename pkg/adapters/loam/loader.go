package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/tendril/pkg/schema"
)

// Loader adapts the Loam library to the tendril SchemaLoader interface.
// Every document in the repository declares one parameter.
type Loader struct {
	Repo    *loam.TypedRepository[ParameterMetadata]
	Catalog *schema.Catalog
}

// New creates a new Loam adapter. catalog may be nil when the documents only
// use built-in transforms and validators.
func New(repo *loam.TypedRepository[ParameterMetadata], catalog *schema.Catalog) *Loader {
	return &Loader{
		Repo:    repo,
		Catalog: catalog,
	}
}

// Open initializes a read-only Loam repository at dir and wraps it.
func Open(dir string, catalog *schema.Catalog) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode keeps numbers as json.Number across Markdown and JSON
	// documents, so integer defaults stay Int.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[ParameterMetadata](repo), catalog), nil
}

type entry struct {
	spec  schema.Spec
	order *int
	path  string
}

// LoadSchema implements ports.SchemaLoader.
func (l *Loader) LoadSchema(ctx context.Context) (*schema.Schema, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	entries := make([]entry, 0, len(docs))
	for _, doc := range docs {
		spec := doc.Data.Spec(doc.ID, strings.TrimSpace(doc.Content))
		if existingPath, ok := seen[spec.Key]; ok {
			return nil, fmt.Errorf("collision detected: key '%s' is defined in both '%s' and '%s'", spec.Key, existingPath, doc.ID)
		}
		seen[spec.Key] = doc.ID
		entries = append(entries, entry{spec: spec, order: doc.Data.Order, path: doc.ID})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.order != nil && b.order != nil && *a.order != *b.order:
			return *a.order < *b.order
		case a.order != nil && b.order == nil:
			return true
		case a.order == nil && b.order != nil:
			return false
		}
		return a.spec.Key < b.spec.Key
	})

	params := make([]schema.Parameter, 0, len(entries))
	for _, e := range entries {
		d, err := e.spec.Build(l.Catalog)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.path, err)
		}
		params = append(params, d)
	}
	return schema.New(params...)
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// Coalesce: a pending signal already asks for a reload.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}
