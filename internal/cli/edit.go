package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/value"
)

// EditOptions configures an interactive editing session.
type EditOptions struct {
	// Protect lists keys that cannot be changed from the console.
	Protect  []string
	JSON     bool
	ReadOnly bool
}

// Edit runs the console over one instance, reading commands from in and
// writing responses to out. With a backend the instance is loaded first and
// saved after every accepted change.
func Edit(ctx context.Context, eng *tendril.Engine, backend *Backend, instanceID string, in io.Reader, out io.Writer, logger *slog.Logger, eo EditOptions) error {
	if instanceID == "" {
		instanceID = "default"
	}

	opts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithInterceptor(editPolicy(eo)),
	}
	if eo.JSON {
		opts = append(opts, runner.WithInputHandler(runner.NewJSONHandler(in, out)))
	} else {
		opts = append(opts,
			runner.WithInputHandler(runner.NewTextHandler(in, out, runner.WithPrompt("> "))),
			runner.WithGreeting(fmt.Sprintf("editing %s/%s (type \"help\" for commands)", eng.Name, instanceID)),
		)
	}
	if backend != nil {
		opts = append(opts, runner.WithStore(backend.Store, instanceID))
	}
	r := runner.New(opts...)

	sessions := eng.Sessions(backend.SessionOptions()...)
	defer sessions.Close()
	return sessions.WithInstance(ctx, instanceID, func(ctx context.Context, c *runtime.Context) error {
		return r.Run(ctx, c)
	})
}

func editPolicy(eo EditOptions) runner.Interceptor {
	policies := []runner.Interceptor{runner.AllowAll()}
	if eo.ReadOnly {
		policies = append(policies, runner.ReadOnly())
	}
	if len(eo.Protect) > 0 {
		keys := make([]value.Key, len(eo.Protect))
		for i, k := range eo.Protect {
			keys[i] = value.Key(k)
		}
		policies = append(policies, runner.ProtectKeys(keys...))
	}
	return runner.MultiInterceptor(policies...)
}
