package domain

import (
	"time"

	"github.com/aretw0/tendril/pkg/schema"
)

// ParameterState is the mutable bookkeeping kept per key next to its value.
type ParameterState struct {
	// Dirty is set once the value was changed by the user since the last
	// reset or restore.
	Dirty bool `json:"dirty"`
	// Touched is set by any set or trigger, even when the value is unchanged.
	Touched bool `json:"touched"`
	// Valid is the outcome of the last validation of the key.
	Valid bool `json:"valid"`
	// Validated is false until the key went through validation once.
	Validated bool `json:"validated"`
	// Errors holds the failures of the last validation.
	Errors []schema.FieldError `json:"errors,omitempty"`
	// LastValidated is the time of the last validation, zero if never.
	LastValidated time.Time `json:"last_validated,omitempty"`
	Visible       bool      `json:"visible"`
	Enabled       bool      `json:"enabled"`
}

// NewParameterState returns the state of a key nobody has touched yet.
func NewParameterState(defaultValid bool) ParameterState {
	return ParameterState{Valid: defaultValid, Visible: true, Enabled: true}
}

// Clone returns a deep copy.
func (s ParameterState) Clone() ParameterState {
	if s.Errors != nil {
		errs := make([]schema.FieldError, len(s.Errors))
		copy(errs, s.Errors)
		s.Errors = errs
	}
	return s
}

// Equal compares two states, ignoring timestamps.
func (s ParameterState) Equal(o ParameterState) bool {
	if s.Dirty != o.Dirty || s.Touched != o.Touched || s.Valid != o.Valid ||
		s.Validated != o.Validated || s.Visible != o.Visible || s.Enabled != o.Enabled ||
		len(s.Errors) != len(o.Errors) {
		return false
	}
	for i := range s.Errors {
		if s.Errors[i] != o.Errors[i] {
			return false
		}
	}
	return true
}
