package registry_test

import (
	"testing"

	"github.com/aretw0/tendril/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := registry.New[func(int) int]("transform")
	r.Register("double", func(i int) int { return i * 2 })
	r.Register("inc", func(i int) int { return i + 1 })

	fn, err := r.Get("double")
	require.NoError(t, err)
	assert.Equal(t, 8, fn(4))

	_, err = r.Get("missing")
	assert.EqualError(t, err, "transform not found: missing")

	assert.Equal(t, []string{"double", "inc"}, r.Names())

	r.Register("double", func(i int) int { return i * 3 })
	fn, ok := r.Lookup("double")
	require.True(t, ok)
	assert.Equal(t, 12, fn(4), "register overwrites")
}
