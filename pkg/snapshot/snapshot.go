// Package snapshot captures the full state of a runtime instance and
// computes reversible structural diffs between value sets.
package snapshot

import (
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/value"
	"github.com/google/uuid"
)

// Snapshot is a point-in-time copy of an instance's values and states.
// It is never aliased with the instance it was taken from.
type Snapshot struct {
	ID     string                              `json:"id"`
	Label  string                              `json:"label,omitempty"`
	Time   time.Time                           `json:"time"`
	Values value.Map                           `json:"values"`
	States map[value.Key]domain.ParameterState `json:"states"`
}

// New copies values and states into a fresh snapshot with a random ID.
func New(label string, at time.Time, values value.Map, states map[value.Key]domain.ParameterState) *Snapshot {
	return &Snapshot{
		ID:     uuid.NewString(),
		Label:  label,
		Time:   at,
		Values: values.Clone(),
		States: cloneStates(states),
	}
}

// Clone returns a deep copy sharing nothing mutable with s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	return &Snapshot{
		ID:     s.ID,
		Label:  s.Label,
		Time:   s.Time,
		Values: s.Values.Clone(),
		States: cloneStates(s.States),
	}
}

// Keys returns the keys holding a value, sorted.
func (s *Snapshot) Keys() []value.Key { return s.Values.Keys() }

func cloneStates(in map[value.Key]domain.ParameterState) map[value.Key]domain.ParameterState {
	out := make(map[value.Key]domain.ParameterState, len(in))
	for k, st := range in {
		out[k] = st.Clone()
	}
	return out
}
