package schema

import (
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"unicode/utf8"

	"github.com/aretw0/tendril/pkg/value"
)

// Built-in validators other than Required accept Null, so optional
// parameters only need Required when a value is mandatory.

// Required rejects Null, empty text, empty arrays and empty objects.
func Required() Validator {
	return func(v value.Value) error {
		if v.IsEmpty() {
			return Violationf(CodeRequired, "is required")
		}
		return nil
	}
}

// MinLength rejects text shorter than n characters.
func MinLength(n int) Validator {
	return func(v value.Value) error {
		s, ok := v.AsText()
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(s) < n {
			return Violationf(CodeMinLength, "must be at least %d characters", n)
		}
		return nil
	}
}

// MaxLength rejects text longer than n characters.
func MaxLength(n int) Validator {
	return func(v value.Value) error {
		s, ok := v.AsText()
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(s) > n {
			return Violationf(CodeMaxLength, "must be at most %d characters", n)
		}
		return nil
	}
}

// Pattern rejects text that does not match re.
func Pattern(re *regexp.Regexp) Validator {
	return func(v value.Value) error {
		s, ok := v.AsText()
		if !ok {
			return nil
		}
		if !re.MatchString(s) {
			return Violationf(CodePattern, "must match %s", re.String())
		}
		return nil
	}
}

// Email rejects text that is not a bare e-mail address.
func Email() Validator {
	return func(v value.Value) error {
		s, ok := v.AsText()
		if !ok {
			return nil
		}
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return Violationf(CodeEmail, "must be a valid e-mail address")
		}
		return nil
	}
}

// Range rejects numbers outside [lo, hi].
func Range(lo, hi float64) Validator {
	return func(v value.Value) error {
		f, ok := v.Number()
		if !ok {
			return nil
		}
		if f < lo || f > hi || math.IsNaN(f) {
			return Violationf(CodeRange, "must be between %g and %g", lo, hi)
		}
		return nil
	}
}

// OneOf rejects values not structurally equal to one of allowed.
func OneOf(allowed ...value.Value) Validator {
	return func(v value.Value) error {
		if v.IsNull() {
			return nil
		}
		for _, a := range allowed {
			if value.Equal(v, a) {
				return nil
			}
		}
		return Violationf(CodeOneOf, "must be one of %s", value.Array(allowed...))
	}
}

// MinItems rejects arrays with fewer than n elements.
func MinItems(n int) Validator {
	return func(v value.Value) error {
		if v.Kind() != value.KindArray {
			return nil
		}
		if v.Len() < n {
			return Violationf(CodeMinItems, "must have at least %d items", n)
		}
		return nil
	}
}

// MaxItems rejects arrays with more than n elements.
func MaxItems(n int) Validator {
	return func(v value.Value) error {
		if v.Kind() != value.KindArray {
			return nil
		}
		if v.Len() > n {
			return Violationf(CodeMaxItems, "must have at most %d items", n)
		}
		return nil
	}
}

// Func adapts a predicate. message is reported when ok returns false.
func Func(code, message string, ok func(value.Value) bool) Validator {
	if code == "" {
		code = CodeCustom
	}
	return func(v value.Value) error {
		if !ok(v) {
			return &Violation{Code: code, Message: message}
		}
		return nil
	}
}

// KindOf rejects values whose kind is not want. Useful inside arrays, where
// the pipeline's kind check does not reach.
func KindOf(want value.Kind) Validator {
	return func(v value.Value) error {
		if v.Kind() != want {
			return Violationf(CodeKind, "expected %s, got %s", want, v.Kind())
		}
		return nil
	}
}

// Each applies validate to every element of an array.
func Each(validate Validator) Validator {
	return func(v value.Value) error {
		if v.Kind() != value.KindArray {
			return nil
		}
		for i, elem := range v.Elements() {
			if err := validate(elem); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	}
}
