package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/tendril/pkg/value"
)

// DefaultMaxLine caps one console line, command and literal included.
const DefaultMaxLine = 4096

// EnvMaxInputSize overrides DefaultMaxLine.
const EnvMaxInputSize = "TENDRIL_MAX_INPUT_SIZE"

var (
	ErrInputTooLarge = errors.New("line exceeds maximum size")
	ErrInvalidUTF8   = errors.New("line is not valid UTF-8")
	// ErrNULByte rejects NUL in anything that may become a Text value: the
	// file and sqlite stores cannot round-trip it faithfully.
	ErrNULByte = errors.New("NUL byte in input")
)

// maxLine returns the line cap, honouring EnvMaxInputSize when it holds a
// positive integer.
func maxLine() int {
	if raw := os.Getenv(EnvMaxInputSize); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxLine
}

// SanitizeInput prepares one raw console line for parsing. Oversized lines,
// invalid UTF-8 and NUL are rejected outright, since a truncated or repaired
// literal would still parse into a different value. A trailing carriage
// return is dropped and terminal escapes (any other control character but
// tab) are removed.
func SanitizeInput(line string) (string, error) {
	if limit := maxLine(); len(line) > limit {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrInputTooLarge, len(line), limit)
	}
	if !utf8.ValidString(line) {
		return "", ErrInvalidUTF8
	}
	if i := strings.IndexByte(line, 0); i >= 0 {
		return "", fmt.Errorf("%w at offset %d", ErrNULByte, i)
	}
	line = strings.TrimSuffix(line, "\r")
	return strings.Map(func(r rune) rune {
		if r != '\t' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, line), nil
}

// CheckValue rejects values that carry NUL in a Text, at any depth. Line
// input is covered by SanitizeInput; JSON input can smuggle NUL through a
// \u0000 escape.
func CheckValue(v value.Value) error {
	switch v.Kind() {
	case value.KindText:
		s, _ := v.AsText()
		if strings.IndexByte(s, 0) >= 0 {
			return ErrNULByte
		}
	case value.KindArray:
		for i, elem := range v.Elements() {
			if err := CheckValue(elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	case value.KindObject:
		for _, k := range v.FieldKeys() {
			f, _ := v.Field(k)
			if err := CheckValue(f); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
	}
	return nil
}
