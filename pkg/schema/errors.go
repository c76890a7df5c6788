package schema

import (
	"errors"
	"fmt"

	"github.com/aretw0/tendril/pkg/value"
)

// Violation codes produced by the built-in validators.
const (
	CodeRequired  = "required"
	CodeMinLength = "min_length"
	CodeMaxLength = "max_length"
	CodePattern   = "pattern"
	CodeEmail     = "email"
	CodeRange     = "range"
	CodeOneOf     = "one_of"
	CodeMinItems  = "min_items"
	CodeMaxItems  = "max_items"
	CodeKind      = "kind"
	CodeCustom    = "custom"
	CodeCross     = "cross"
)

// Violation is what a validator returns when a value is rejected.
type Violation struct {
	Code    string
	Message string
}

func (v *Violation) Error() string { return v.Message }

// Violationf builds a Violation with a formatted message.
func Violationf(code, format string, args ...any) *Violation {
	return &Violation{Code: code, Message: fmt.Sprintf(format, args...)}
}

// FieldError represents a single validation failure of one parameter.
type FieldError struct {
	Key     value.Key `json:"key"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Key, e.Message)
}

// NewFieldError converts a validator error into a FieldError for key. Errors
// that are not a *Violation get CodeCustom.
func NewFieldError(key value.Key, err error) FieldError {
	var v *Violation
	if errors.As(err, &v) {
		return FieldError{Key: key, Code: v.Code, Message: err.Error()}
	}
	return FieldError{Key: key, Code: CodeCustom, Message: err.Error()}
}
