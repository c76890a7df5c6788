package cli

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/tendril"
)

// Watch reloads the engine's schema whenever its source changes and calls
// report with a fresh instance after each successful reload, and once at
// start. A broken schema is logged and the previous one stays in use until
// the next change. Watch returns when ctx is done.
func Watch(ctx context.Context, eng *tendril.Engine, logger *slog.Logger, report func(*tendril.Engine) error) error {
	changes, err := eng.Watch(ctx)
	if err != nil {
		return err
	}
	if err := report(eng); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Info("Change detected, reloading")
			if err := eng.Reload(ctx); err != nil {
				logger.Error("Reload failed", "err", err)
				PrintSystemMessage("Reload failed: %v", err)
				continue
			}
			PrintSystemMessage("Schema reloaded at %s.", time.Now().Format(time.TimeOnly))
			if err := report(eng); err != nil {
				return err
			}
		}
	}
}

// InspectReport is a Watch report that prints the defaults of the current
// schema as an inspect table.
func InspectReport(w io.Writer, plain bool) func(*tendril.Engine) error {
	return func(eng *tendril.Engine) error {
		inst := eng.NewInstance()
		defer inst.Close()
		_ = inst.ValidateAll(context.Background())
		md := InspectMarkdown(eng.Name, inst)
		if w != nil {
			_, err := io.WriteString(w, md)
			return err
		}
		Render(md, plain)
		return nil
	}
}
