package dto

import (
	"testing"

	"github.com/aretw0/tendril/pkg/expr"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/snapshot"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New(
		schema.Define("mode", value.KindText, schema.Default(value.Text("basic")), schema.Label("Mode")),
		schema.Define("gamma", value.KindFloat,
			schema.Default(value.Float(2.2)),
			schema.Visible(expr.Eq{Key: "mode", Value: value.Text("advanced")})),
		schema.Define("apply", value.KindNull, schema.AsAction(), schema.DependsOn("gamma")),
	)
	require.NoError(t, err)
	return s
}

func TestDescribe(t *testing.T) {
	infos := Describe(testSchema(t))
	require.Len(t, infos, 3)

	assert.Equal(t, ParameterInfo{Key: "mode", Kind: "text", Label: "Mode", Default: "basic", HasDefault: true}, infos[0])
	assert.Equal(t, []string{"mode"}, infos[1].DependsOn)
	assert.NotEmpty(t, infos[1].VisibleWhen)
	assert.True(t, infos[2].Action)
	assert.Equal(t, []string{"gamma"}, infos[2].DependsOn)
}

func TestViews(t *testing.T) {
	c := runtime.New(testSchema(t))
	defer c.Close()

	views := Views(c)
	require.Len(t, views, 3)
	assert.Equal(t, "mode", views[0].Key)
	assert.Equal(t, "basic", views[0].Value)
	assert.True(t, views[0].Visible)
	assert.False(t, views[1].Visible)

	_, err := View(c, "missing")
	assert.Error(t, err)
}

func TestChanges(t *testing.T) {
	d := snapshot.Compute(
		value.Map{"a": value.Int(1), "b": value.Int(2)},
		value.Map{"a": value.Int(3), "c": value.Text("x")},
	)
	assert.Equal(t, []Change{
		{Key: "a", Old: int64(1), New: int64(3)},
		{Key: "b", Old: int64(2)},
		{Key: "c", New: "x"},
	}, Changes(d))
}
