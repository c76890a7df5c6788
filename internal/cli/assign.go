package cli

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/value"
)

// Assignment is one key=value pair from the command line.
type Assignment struct {
	Key   value.Key
	Value value.Value
}

// ParseAssignments parses key=value pairs. Values are read as YAML scalars
// or flow collections ("3", "true", "[a, b]", "{x: 1}"); anything YAML
// cannot read is kept as text. An empty right side is Null.
func ParseAssignments(pairs []string) ([]Assignment, error) {
	out := make([]Assignment, 0, len(pairs))
	for _, pair := range pairs {
		k, raw, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q: want key=value", pair)
		}
		v, err := runner.ParseLiteral(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid assignment %q: %w", pair, err)
		}
		out = append(out, Assignment{Key: value.Key(k), Value: v})
	}
	return out, nil
}
