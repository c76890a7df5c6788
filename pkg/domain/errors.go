package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
)

// ErrNotFound is returned when a key is not declared by the schema.
var ErrNotFound = errors.New("parameter not found")

// ErrNoDefaultValue is returned when resetting a parameter without a default.
var ErrNoDefaultValue = errors.New("parameter has no default value")

// ErrTransactionMisuse is returned when a transaction is used after it was
// committed or rolled back.
var ErrTransactionMisuse = errors.New("transaction already finished")

// ErrTypeMismatch is matched by every *TypeMismatchError.
var ErrTypeMismatch = errors.New("type mismatch")

// ErrValidation is matched by every *ValidationFailure.
var ErrValidation = errors.New("validation failed")

// ErrSnapshotNotFound is returned by snapshot stores for unknown IDs.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrNotAction is returned when triggering a parameter that is not an action.
var ErrNotAction = errors.New("parameter is not an action")

// ErrDisabled is returned when triggering an action whose enabled condition
// is false.
var ErrDisabled = errors.New("parameter is disabled")

// ErrChangeInProgress is returned when a key is mutated again from a
// callback while its previous change is still between BeforeChange and
// AfterChange.
var ErrChangeInProgress = errors.New("change already in progress")

// ErrCycle is returned when expression values reference each other in a
// loop.
var ErrCycle = errors.New("expression cycle")

// NotFound wraps ErrNotFound with the offending key.
func NotFound(key value.Key) error {
	return fmt.Errorf("%w: %q", ErrNotFound, key)
}

// TypeMismatchError reports a value whose kind the parameter does not accept.
type TypeMismatchError struct {
	Key      value.Key
	Expected value.Kind
	Got      value.Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("parameter %q: expected %s, got %s", e.Key, e.Expected, e.Got)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// ValidationFailure carries every error a rejected value produced.
type ValidationFailure struct {
	Key    value.Key
	Errors []schema.FieldError
}

func (e *ValidationFailure) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Message
	}
	return fmt.Sprintf("parameter %q: %d validation errors: %s", e.Key, len(e.Errors), strings.Join(msgs, "; "))
}

func (e *ValidationFailure) Is(target error) bool { return target == ErrValidation }

// AggregateError represents multiple failures, e.g. from a full validation
// pass over an instance.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// FieldErrors flattens the field errors carried by err, which may be a
// *ValidationFailure or an *AggregateError of them.
func FieldErrors(err error) []schema.FieldError {
	var out []schema.FieldError
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		for _, e := range aggr.Errors {
			out = append(out, FieldErrors(e)...)
		}
		return out
	}
	var vf *ValidationFailure
	if errors.As(err, &vf) {
		return append(out, vf.Errors...)
	}
	var fe schema.FieldError
	if errors.As(err, &fe) {
		return append(out, fe)
	}
	return nil
}
