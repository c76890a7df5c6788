package runner

import (
	"log/slog"

	"github.com/aretw0/tendril/pkg/ports"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithStore persists the instance under instanceID after every successful
// mutation and on "save".
func WithStore(store ports.SnapshotStore, instanceID string) Option {
	return func(r *Runner) {
		r.Store = store
		r.InstanceID = instanceID
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithInterceptor configures the command policy.
func WithInterceptor(interceptor Interceptor) Option {
	return func(r *Runner) {
		r.Interceptor = interceptor
	}
}

// WithGreeting sets the message shown before the first read.
func WithGreeting(msg string) Option {
	return func(r *Runner) {
		r.Greeting = msg
	}
}
