package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// NewLogger configures the application logger. Logs always go to Stderr so
// they never mix with command output.
func NewLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.New(slog.LevelWarn)
}

// PrintSystemMessage prints a standardized system message to stderr.
func PrintSystemMessage(format string, args ...any) {
	fmt.Fprintf(os.Stderr, ">>> %s\n", fmt.Sprintf(format, args...))
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit: func(ctx context.Context, e *domain.CommitEvent) {
			logger.Debug("Commit", "key", e.Key, "source", e.Source, "old", e.Old, "new", e.New, "duration", e.Duration)
		},
		OnValidationFailed: func(ctx context.Context, e *domain.ValidationEvent) {
			logger.Debug("Rejected", "key", e.Key, "errors", len(e.Errors))
		},
		OnUndo: func(ctx context.Context, e *domain.HistoryEvent) {
			logger.Debug("Undo", "entry", e.Description)
		},
		OnRedo: func(ctx context.Context, e *domain.HistoryEvent) {
			logger.Debug("Redo", "entry", e.Description)
		},
		OnRollback: func(ctx context.Context, e *domain.HistoryEvent) {
			logger.Debug("Rollback", "transaction", e.Description)
		},
	}
}
