package snapshot_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/snapshot"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var valueCmp = cmp.Comparer(value.Equal)

func sampleMaps() (a, b value.Map) {
	a = value.Map{
		"same":    value.Text("x"),
		"changed": value.Int(1),
		"gone":    value.Bool(true),
		"nested":  value.Array(value.Int(1)),
	}
	b = value.Map{
		"same":    value.Text("x"),
		"changed": value.Float(1),
		"new":     value.Null(),
		"nested":  value.Array(value.Int(1), value.Int(2)),
	}
	return a, b
}

func TestCompute(t *testing.T) {
	a, b := sampleMaps()
	d := snapshot.Compute(a, b)

	assert.Equal(t, []value.Key{"new"}, d.Added.Keys())
	assert.Equal(t, []value.Key{"gone"}, d.Removed.Keys())
	assert.Len(t, d.Changed, 2)
	assert.NotContains(t, d.Changed, value.Key("same"))
	assert.Equal(t, []value.Key{"changed", "gone", "nested", "new"}, d.Keys())

	assert.True(t, snapshot.Compute(a, a).IsEmpty())
}

func TestApplyAndReverse(t *testing.T) {
	a, b := sampleMaps()
	d := snapshot.Compute(a, b)

	got := d.Applied(a)
	if diff := cmp.Diff(b, got, valueCmp); diff != "" {
		t.Fatalf("apply(d, A) != B (-want +got):\n%s", diff)
	}

	back := d.Reverse().Applied(got)
	if diff := cmp.Diff(a, back, valueCmp); diff != "" {
		t.Fatalf("apply(reverse(d), B) != A (-want +got):\n%s", diff)
	}

	twice := d.Applied(got)
	if diff := cmp.Diff(b, twice, valueCmp); diff != "" {
		t.Fatalf("second apply is not idempotent (-want +got):\n%s", diff)
	}

	assert.Len(t, a, 4, "Applied must not touch its input")
}

func TestSnapshotIsolation(t *testing.T) {
	values := value.Map{"a": value.Int(1)}
	states := map[value.Key]domain.ParameterState{"a": domain.NewParameterState(true)}
	s := snapshot.New("before", time.Unix(10, 0), values, states)

	values["a"] = value.Int(2)
	st := states["a"]
	st.Dirty = true
	states["a"] = st

	assert.True(t, value.Equal(value.Int(1), s.Values["a"]))
	assert.False(t, s.States["a"].Dirty)
	assert.NotEmpty(t, s.ID)

	c := s.Clone()
	c.Values["a"] = value.Int(3)
	assert.True(t, value.Equal(value.Int(1), s.Values["a"]))
}

func TestSnapshotJSON(t *testing.T) {
	s := snapshot.New("label", time.Unix(10, 0).UTC(), value.Map{
		"i": value.Int(1),
		"f": value.Float(1),
	}, map[value.Key]domain.ParameterState{"i": domain.NewParameterState(false)})

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var out snapshot.Snapshot
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, s.ID, out.ID)
	assert.True(t, s.Time.Equal(out.Time))
	if diff := cmp.Diff(s.Values, out.Values, valueCmp); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, s.States["i"].Equal(out.States["i"]))
}
