/*
Package runner implements an interactive editing loop over one parameter
instance.

The runner reads commands through a pluggable IOHandler, applies them to a
runtime.Context and writes back a Response carrying the new value, the
validation errors and the events the command caused. Two handlers ship with
the package:

  - TextHandler: a line-oriented console ("set width 120", "undo", "show").
  - JSONHandler: JSON Lines for scripted front ends
    ({"op":"set","key":"width","value":120}).

When a store is configured every successful mutation is persisted, so an
interrupted session can be resumed.

# Usage

	r := runner.New(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
		runner.WithStore(store, "user-1"),
	)

	if err := r.Run(ctx, c); err != nil {
		log.Fatal(err)
	}
*/
package runner
