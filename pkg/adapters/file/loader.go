package file

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/fsnotify/fsnotify"
)

// settle is how long Watch waits after the last filesystem event before
// signaling, so that an editor's write-rename-chmod burst reloads once.
const settle = 100 * time.Millisecond

// Loader implements ports.SchemaLoader and ports.Watchable over a single
// YAML or JSON schema file.
type Loader struct {
	Path    string
	Catalog *schema.Catalog
	logger  *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger used to report watch errors.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader for the schema file at path.
func NewLoader(path string, catalog *schema.Catalog, opts ...LoaderOption) *Loader {
	l := &Loader{Path: path, Catalog: catalog, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadSchema implements ports.SchemaLoader.
func (l *Loader) LoadSchema(ctx context.Context) (*schema.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return schema.LoadFile(l.Path, l.Catalog)
}

// Watch implements ports.Watchable. The parent directory is watched rather
// than the file, since editors commonly replace files by renaming.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	abs, err := filepath.Abs(l.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer w.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(settle)
				} else {
					timer.Reset(settle)
				}
				fire = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("schema watch error", "path", l.Path, "err", err)
			case <-fire:
				fire = nil
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}
