package lua_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/adapters/lua"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rangeRule = `
if values.min > values.max then
  fail("max", "max must not be below min")
end
if values.name == nil then
  fail("name")
end
`

func TestValidate(t *testing.T) {
	v, err := lua.Compile("range.lua", rangeRule)
	require.NoError(t, err)

	ok := v.Validate(context.Background(), value.Map{
		"min":  value.Int(1),
		"max":  value.Float(2.5),
		"name": value.Text("x"),
	})
	assert.Empty(t, ok)

	bad := v.Validate(context.Background(), value.Map{
		"min":  value.Int(5),
		"max":  value.Int(2),
		"name": value.Null(),
	})
	require.Len(t, bad, 2)
	assert.Equal(t, value.Key("max"), bad[0].Key)
	assert.Equal(t, schema.CodeCross, bad[0].Code)
	assert.Equal(t, "max must not be below min", bad[0].Message)
	assert.Equal(t, value.Key("name"), bad[1].Key)
	assert.Equal(t, "invalid value", bad[1].Message)
}

func TestValidate_Collections(t *testing.T) {
	v, err := lua.Compile("tags.lua", `
if #values.tags > 2 then fail("tags", "too many") end
if values.size.w ~= 10 then fail("size", "bad width") end
`)
	require.NoError(t, err)

	errs := v.Validate(context.Background(), value.Map{
		"tags": value.Array(value.Text("a"), value.Text("b"), value.Text("c")),
		"size": value.Object(map[value.Key]value.Value{"w": value.Int(10)}),
	})
	require.Len(t, errs, 1)
	assert.Equal(t, value.Key("tags"), errs[0].Key)
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := lua.Compile("broken.lua", "if then")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.lua")
}

func TestValidate_ScriptErrorReportedOnScope(t *testing.T) {
	v, err := lua.Compile("oops.lua", `error("boom")`, lua.WithScope("a"))
	require.NoError(t, err)

	errs := v.Validate(context.Background(), value.Map{})
	require.Len(t, errs, 1)
	assert.Equal(t, value.Key("a"), errs[0].Key)
	assert.Equal(t, lua.CodeScript, errs[0].Code)
	assert.Contains(t, errs[0].Message, "boom")

	unscoped, err := lua.Compile("oops.lua", `error("boom")`)
	require.NoError(t, err)
	assert.Empty(t, unscoped.Validate(context.Background(), value.Map{}))
}

func TestValidate_Timeout(t *testing.T) {
	v, err := lua.Compile("spin.lua", `while true do end`,
		lua.WithTimeout(50*time.Millisecond), lua.WithScope("a"))
	require.NoError(t, err)

	start := time.Now()
	errs := v.Validate(context.Background(), value.Map{})
	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, errs, 1)
	assert.Equal(t, lua.CodeScript, errs[0].Code)
}

func TestValidate_NoUnsafeLibraries(t *testing.T) {
	v, err := lua.Compile("os.lua", `if os ~= nil or io ~= nil then fail("a", "unsafe") end`)
	require.NoError(t, err)
	assert.Empty(t, v.Validate(context.Background(), value.Map{}))
}

func TestValidate_WithRuntime(t *testing.T) {
	s, err := schema.New(
		schema.Define("min", value.KindInt, schema.Default(value.Int(0))),
		schema.Define("max", value.KindInt, schema.Default(value.Int(10))),
		schema.Define("name", value.KindText, schema.Default(value.Text("n"))),
	)
	require.NoError(t, err)

	rule, err := lua.Compile("range.lua", rangeRule)
	require.NoError(t, err)

	c := runtime.New(s, runtime.WithCrossValidator(rule.Validate))
	defer c.Close()

	require.NoError(t, c.ValidateAll(context.Background()))

	require.NoError(t, c.Set(context.Background(), "min", value.Int(20)))

	err = c.ValidateAll(context.Background())
	var agg *domain.AggregateError
	require.True(t, errors.As(err, &agg))
	assert.False(t, c.IsValid("max"))
	assert.True(t, c.IsValid("min"))
}
