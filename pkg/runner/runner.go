package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/tendril/internal/dto"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/event"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
)

// Runner handles the command loop over one instance using the provided IO.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on
	// Stdin/Stdout.
	Handler IOHandler

	// Interceptor is consulted before each command. Defaults to AllowAll.
	Interceptor Interceptor

	// Logger is used for internal debug logging.
	Logger *slog.Logger

	// Store is the persistence adapter. If nil, the session is ephemeral.
	Store      ports.SnapshotStore
	InstanceID string

	Greeting string
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{Logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout, WithPrompt("> "))
	}
	if r.Interceptor == nil {
		r.Interceptor = AllowAll()
	}
	return r
}

// Run executes the command loop until the input ends, a quit command is
// read or ctx is cancelled. The caller must own c for the whole run.
func (r *Runner) Run(ctx context.Context, c *runtime.Context) error {
	var events []event.Event
	remove := c.OnEvent(func(e event.Event) { events = append(events, e) })
	defer remove()

	if r.Greeting != "" {
		if err := r.Handler.SystemOutput(ctx, r.Greeting); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}

	for {
		cmd, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				r.Logger.Debug("runner stopped", "reason", err)
				return nil
			}
			return err
		}
		if cmd.Op == OpQuit {
			return nil
		}

		allowed, reason, err := r.Interceptor(ctx, cmd)
		if err != nil {
			return fmt.Errorf("interceptor error: %w", err)
		}

		var resp Response
		if !allowed {
			resp = Response{Op: cmd.Op, Key: cmd.Key, Message: reason}
		} else {
			events = events[:0]
			resp = r.dispatch(ctx, c, cmd)
			if len(events) > 0 {
				resp.Events = append([]event.Event(nil), events...)
			}
			if resp.OK && cmd.Mutates() {
				if err := r.save(ctx, c); err != nil {
					return fmt.Errorf("critical persistence error: %w", err)
				}
			}
		}

		if err := r.Handler.Output(ctx, resp); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
}

func (r *Runner) dispatch(ctx context.Context, c *runtime.Context, cmd Command) Response {
	resp := Response{Op: cmd.Op, Key: cmd.Key}

	switch cmd.Op {
	case OpGet:
		v, err := c.Get(cmd.Key)
		if err != nil {
			return failed(resp, err)
		}
		resp.OK, resp.Value = true, v.Any()

	case OpSet:
		if err := c.Set(ctx, cmd.Key, cmd.Value); err != nil {
			return failed(resp, err)
		}
		resp.OK, resp.Value = true, c.MustGet(cmd.Key).Any()

	case OpReset:
		if err := c.Reset(ctx, cmd.Key); err != nil {
			return failed(resp, err)
		}
		resp.OK, resp.Value = true, c.MustGet(cmd.Key).Any()

	case OpTrigger:
		if err := c.Trigger(ctx, cmd.Key); err != nil {
			return failed(resp, err)
		}
		resp.OK = true

	case OpUndo, OpRedo:
		walk, what := c.Undo, "undo"
		if cmd.Op == OpRedo {
			walk, what = c.Redo, "redo"
		}
		ok, err := walk(ctx)
		if err != nil {
			return failed(resp, err)
		}
		resp.OK = ok
		if !ok {
			resp.Message = "nothing to " + what
		}

	case OpShow:
		resp.OK, resp.Params = true, dto.Views(c)

	case OpValidate:
		err := c.ValidateAll(ctx)
		resp.Errors = domain.FieldErrors(err)
		resp.OK = err == nil
		if err != nil && len(resp.Errors) == 0 {
			resp.Message = err.Error()
		}

	case OpSave:
		if r.Store == nil {
			resp.Message = "no store configured"
			return resp
		}
		if err := r.save(ctx, c); err != nil {
			return failed(resp, err)
		}
		resp.OK, resp.Message = true, "saved "+r.InstanceID

	case OpHelp:
		resp.OK, resp.Message = true, HelpText

	default:
		resp.Message = fmt.Sprintf("unknown command %q", cmd.Op)
	}
	return resp
}

func failed(resp Response, err error) Response {
	resp.Errors = domain.FieldErrors(err)
	var tm *domain.TypeMismatchError
	if len(resp.Errors) == 0 && errors.As(err, &tm) {
		resp.Errors = []schema.FieldError{{Key: tm.Key, Code: schema.CodeKind, Message: err.Error()}}
	}
	if len(resp.Errors) == 0 {
		resp.Message = err.Error()
	}
	return resp
}

func (r *Runner) save(ctx context.Context, c *runtime.Context) error {
	if r.Store == nil {
		return nil
	}
	if err := r.Store.Save(ctx, r.InstanceID, c.Snapshot("runner")); err != nil {
		return err
	}
	r.Logger.Debug("instance saved", "instance_id", r.InstanceID)
	return nil
}
