package cli

import (
	"testing"

	"github.com/aretw0/tendril/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssignments(t *testing.T) {
	got, err := ParseAssignments([]string{
		"width=640",
		"ratio=0.5",
		"on=true",
		"name=hello world",
		"tags=[a, b]",
		"note=",
		" spaced =x=y",
	})
	require.NoError(t, err)
	require.Len(t, got, 7)

	want := []Assignment{
		{"width", value.Int(640)},
		{"ratio", value.Float(0.5)},
		{"on", value.Bool(true)},
		{"name", value.Text("hello world")},
		{"tags", value.Array(value.Text("a"), value.Text("b"))},
		{"note", value.Null()},
		{"spaced", value.Text("x=y")},
	}
	for i, w := range want {
		assert.Equal(t, w.Key, got[i].Key)
		assert.True(t, value.Equal(w.Value, got[i].Value), "%s: got %s", w.Key, got[i].Value)
	}
}

func TestParseAssignments_Invalid(t *testing.T) {
	for _, pair := range []string{"novalue", "=3", "  =x"} {
		_, err := ParseAssignments([]string{pair})
		assert.Error(t, err, pair)
	}
}

func TestParseAssignments_UnparsableYAMLIsText(t *testing.T) {
	got, err := ParseAssignments([]string{"expr=[unclosed"})
	require.NoError(t, err)
	assert.True(t, value.Equal(value.Text("[unclosed"), got[0].Value))
}
