package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/event"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAll(t *testing.T) {
	ctx := context.Background()
	s := schema.MustNew(
		schema.Define("name", value.KindText, schema.Validators(schema.Required())),
		schema.Define("min", value.KindInt, schema.Default(value.Int(5))),
		schema.Define("max", value.KindInt, schema.Default(value.Int(3))),
		schema.Define("handle", value.KindText,
			schema.Default(value.Text("root")),
			schema.AsyncValidators(func(ctx context.Context, v value.Value) error {
				if s, _ := v.AsText(); s == "root" {
					return schema.Violationf("reserved", "handle is reserved")
				}
				return nil
			})),
	)
	rangeCheck := func(ctx context.Context, vals value.Map) []schema.FieldError {
		lo, _ := vals["min"].AsInt()
		hi, _ := vals["max"].AsInt()
		if lo > hi {
			return []schema.FieldError{{Key: "max", Code: schema.CodeCross, Message: "max must not be below min"}}
		}
		return nil
	}
	c := runtime.New(s, runtime.WithCrossValidator(rangeCheck))
	rec := record(c)

	err := c.ValidateAll(ctx)
	require.Error(t, err)
	var aggr *domain.AggregateError
	require.True(t, errors.As(err, &aggr))
	assert.Len(t, aggr.Errors, 3)

	codes := map[value.Key]string{}
	for _, fe := range domain.FieldErrors(err) {
		codes[fe.Key] = fe.Code
	}
	assert.Equal(t, map[value.Key]string{
		"name":   schema.CodeRequired,
		"max":    schema.CodeCross,
		"handle": "reserved",
	}, codes)

	assert.False(t, c.IsValid("name"))
	assert.True(t, c.IsValid("min"))
	assert.Len(t, rec.of(event.ValidationFailed), 3)
	assert.Len(t, rec.of(event.ValidationPassed), 1)

	require.NoError(t, c.Set(ctx, "name", value.Text("ada")))
	require.NoError(t, c.Set(ctx, "max", value.Int(9)))
	require.NoError(t, c.Set(ctx, "handle", value.Text("ada")))
	assert.NoError(t, c.ValidateAll(ctx))
	assert.True(t, c.IsValid("max"))
}
