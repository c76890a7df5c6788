package snapshot

import (
	"github.com/aretw0/tendril/pkg/value"
)

// Change is the old and new value of a key present on both sides of a diff.
type Change struct {
	Old value.Value `json:"old"`
	New value.Value `json:"new"`
}

// Diff is the structural delta between two value sets. Added, Removed and
// Changed are disjoint; keys whose values are equal appear in none of them.
type Diff struct {
	Added   value.Map            `json:"added,omitempty"`
	Removed value.Map            `json:"removed,omitempty"`
	Changed map[value.Key]Change `json:"changed,omitempty"`
}

// Compute returns the diff turning old into new.
func Compute(old, new value.Map) Diff {
	d := Diff{
		Added:   value.Map{},
		Removed: value.Map{},
		Changed: map[value.Key]Change{},
	}
	for k, nv := range new {
		ov, ok := old[k]
		switch {
		case !ok:
			d.Added[k] = nv
		case !value.Equal(ov, nv):
			d.Changed[k] = Change{Old: ov, New: nv}
		}
	}
	for k, ov := range old {
		if _, ok := new[k]; !ok {
			d.Removed[k] = ov
		}
	}
	return d
}

// Between diffs the values of two snapshots.
func Between(a, b *Snapshot) Diff { return Compute(a.Values, b.Values) }

// Apply inserts added keys, deletes removed keys and overwrites changed keys
// with their new value, in place. Applying the same diff twice is idempotent.
func (d Diff) Apply(target value.Map) {
	for k, v := range d.Added {
		target[k] = v
	}
	for k := range d.Removed {
		delete(target, k)
	}
	for k, c := range d.Changed {
		target[k] = c.New
	}
}

// Applied is Apply on a copy of target.
func (d Diff) Applied(target value.Map) value.Map {
	out := target.Clone()
	d.Apply(out)
	return out
}

// Reverse swaps added and removed and flips every change, so that applying
// d then d.Reverse() restores the original.
func (d Diff) Reverse() Diff {
	r := Diff{
		Added:   d.Removed.Clone(),
		Removed: d.Added.Clone(),
		Changed: make(map[value.Key]Change, len(d.Changed)),
	}
	for k, c := range d.Changed {
		r.Changed[k] = Change{Old: c.New, New: c.Old}
	}
	return r
}

func (d Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Keys returns every key the diff touches, sorted.
func (d Diff) Keys() []value.Key {
	keys := make([]value.Key, 0, len(d.Added)+len(d.Removed)+len(d.Changed))
	for k := range d.Added {
		keys = append(keys, k)
	}
	for k := range d.Removed {
		keys = append(keys, k)
	}
	for k := range d.Changed {
		keys = append(keys, k)
	}
	value.SortKeys(keys)
	return keys
}
