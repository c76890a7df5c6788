package schema

import (
	"math"
	"strings"

	"github.com/aretw0/tendril/pkg/value"
)

// Values of a kind a transform does not handle pass through unchanged.

// Clamp limits numbers to [lo, hi]. Ints stay Ints.
func Clamp(lo, hi float64) Transform {
	return func(v value.Value) value.Value {
		switch v.Kind() {
		case value.KindInt:
			i, _ := v.AsInt()
			if f := float64(i); f < lo {
				return value.Int(int64(math.Ceil(lo)))
			} else if f > hi {
				return value.Int(int64(math.Floor(hi)))
			}
		case value.KindFloat:
			f, _ := v.AsFloat()
			if math.IsNaN(f) {
				return value.Float(lo)
			}
			return value.Float(math.Max(lo, math.Min(hi, f)))
		}
		return v
	}
}

// Round rounds floats to the given number of decimal places.
func Round(places int) Transform {
	scale := math.Pow(10, float64(places))
	return func(v value.Value) value.Value {
		f, ok := v.AsFloat()
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return v
		}
		return value.Float(math.Round(f*scale) / scale)
	}
}

// Wrap maps numbers into the half-open range [lo, hi), as for angles.
func Wrap(lo, hi float64) Transform {
	span := hi - lo
	return func(v value.Value) value.Value {
		if span <= 0 {
			return v
		}
		switch v.Kind() {
		case value.KindInt:
			i, _ := v.AsInt()
			if lo != math.Trunc(lo) || hi != math.Trunc(hi) {
				return value.Float(wrap(float64(i), lo, span))
			}
			s, l := int64(span), int64(lo)
			m := (i - l) % s
			if m < 0 {
				m += s
			}
			return value.Int(l + m)
		case value.KindFloat:
			f, _ := v.AsFloat()
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return value.Float(lo)
			}
			return value.Float(wrap(f, lo, span))
		}
		return v
	}
}

func wrap(f, lo, span float64) float64 {
	m := math.Mod(f-lo, span)
	if m < 0 {
		m += span
	}
	return lo + m
}

// TrimSpace removes leading and trailing white space from text.
func TrimSpace() Transform { return textTransform(strings.TrimSpace) }

// Lowercase maps text to lower case.
func Lowercase() Transform { return textTransform(strings.ToLower) }

// Uppercase maps text to upper case.
func Uppercase() Transform { return textTransform(strings.ToUpper) }

func textTransform(fn func(string) string) Transform {
	return func(v value.Value) value.Value {
		s, ok := v.AsText()
		if !ok {
			return v
		}
		return value.Text(fn(s))
	}
}

// IntFromFloat turns integral floats into Ints.
func IntFromFloat() Transform {
	return func(v value.Value) value.Value {
		f, ok := v.AsFloat()
		if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return v
		}
		return value.Int(int64(f))
	}
}

// Chain composes transforms left to right.
func Chain(ts ...Transform) Transform {
	return func(v value.Value) value.Value {
		for _, t := range ts {
			v = t(v)
		}
		return v
	}
}
