/*
Package runtime holds the Context: one mutable instance of parameter values
bound to an immutable schema.

Every mutation goes through the same pipeline. Set resolves the parameter,
transforms the input, checks its kind, runs the validators and only then
commits, announcing the change on the event bus and recording an undo
entry:

	c := runtime.New(s, runtime.WithLogger(logger))
	if err := c.Set(ctx, "opacity", value.Float(1.5)); err != nil {
		var vf *domain.ValidationFailure
		if errors.As(err, &vf) {
			// vf.Errors lists every failure; the old value is kept.
		}
	}
	c.Undo(ctx)

Visibility and enablement conditions are re-evaluated whenever a key they
read changes. Snapshots capture the whole instance and restore it as a
single undoable step.

A Context is not safe for concurrent use. Hand it from one goroutine to
another, or let pkg/session do it.
*/
package runtime
