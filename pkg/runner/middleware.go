package runner

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/pkg/value"
)

// Interceptor is a policy consulted before a command runs. It returns true
// to let the command through; otherwise reason explains the refusal.
type Interceptor func(ctx context.Context, cmd Command) (allowed bool, reason string, err error)

// MultiInterceptor chains interceptors. The first refusal wins.
func MultiInterceptor(interceptors ...Interceptor) Interceptor {
	return func(ctx context.Context, cmd Command) (bool, string, error) {
		for _, interceptor := range interceptors {
			allowed, reason, err := interceptor(ctx, cmd)
			if err != nil {
				return false, "", err
			}
			if !allowed {
				return false, reason, nil
			}
		}
		return true, "", nil
	}
}

// AllowAll lets every command through.
func AllowAll() Interceptor {
	return func(context.Context, Command) (bool, string, error) {
		return true, "", nil
	}
}

// ReadOnly refuses every command that can change the instance.
func ReadOnly() Interceptor {
	return func(_ context.Context, cmd Command) (bool, string, error) {
		if cmd.Mutates() {
			return false, fmt.Sprintf("%s refused: session is read-only", cmd.Op), nil
		}
		return true, "", nil
	}
}

// ProtectKeys refuses set, reset and trigger on the given keys. Undo and
// redo are not key-addressed and stay allowed.
func ProtectKeys(keys ...value.Key) Interceptor {
	protected := make(map[value.Key]struct{}, len(keys))
	for _, k := range keys {
		protected[k] = struct{}{}
	}
	return func(_ context.Context, cmd Command) (bool, string, error) {
		if !cmd.Mutates() || cmd.Key == "" {
			return true, "", nil
		}
		if _, ok := protected[cmd.Key]; ok {
			return false, fmt.Sprintf("%s refused: %s is protected", cmd.Op, cmd.Key), nil
		}
		return true, "", nil
	}
}
