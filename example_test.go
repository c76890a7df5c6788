package tendril_test

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/expr"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
)

// ExampleNew_memory shows the Engine serving parameters declared in Go,
// without touching the filesystem.
func ExampleNew_memory() {
	loader := memory.NewLoader(
		schema.Define("mode", value.KindText, schema.Default(value.Text("basic"))),
		schema.Define("opacity", value.KindFloat,
			schema.Default(value.Float(1)),
			schema.Transforms(schema.Clamp(0, 1)),
		),
		schema.Define("gamma", value.KindFloat,
			schema.Default(value.Float(2.2)),
			schema.Visible(expr.Eq{Key: "mode", Value: value.Text("advanced")}),
		),
	)

	// No path needed because we are providing a loader.
	eng, err := tendril.New("", tendril.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	inst := eng.NewInstance()
	defer inst.Close()

	fmt.Println("gamma visible:", inst.IsVisible("gamma"))

	if err := inst.Set(ctx, "mode", value.Text("advanced")); err != nil {
		log.Fatal(err)
	}
	fmt.Println("gamma visible:", inst.IsVisible("gamma"))

	if err := inst.Set(ctx, "opacity", value.Float(1.5)); err != nil {
		log.Fatal(err)
	}
	fmt.Println("opacity:", inst.MustGet("opacity"))

	if _, err := inst.Undo(ctx); err != nil {
		log.Fatal(err)
	}
	if _, err := inst.Undo(ctx); err != nil {
		log.Fatal(err)
	}
	fmt.Println("mode:", inst.MustGet("mode"))
	fmt.Println("gamma visible:", inst.IsVisible("gamma"))
	// Output:
	// gamma visible: false
	// gamma visible: true
	// opacity: 1
	// mode: "basic"
	// gamma visible: false
}

// ExampleEngine_Sessions shows validation failures leaving the instance
// untouched.
func ExampleEngine_Sessions() {
	loader := memory.NewLoader(
		schema.Define("email", value.KindText, schema.Validators(schema.Email())),
	)
	eng, err := tendril.New("", tendril.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	sessions := eng.Sessions()
	defer sessions.Close()

	err = sessions.WithInstance(context.Background(), "user-1", func(ctx context.Context, inst *runtime.Context) error {
		err := inst.Set(ctx, "email", value.Text("not-an-email"))
		fmt.Println("rejected:", errors.Is(err, domain.ErrValidation))
		fmt.Println("email:", inst.MustGet("email"))
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
	// Output:
	// rejected: true
	// email: null
}
