package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/expr"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/aretw0/tendril/pkg/value"
)

// Overlay contains live instance state to visualize on the graph.
type Overlay struct {
	Hidden   []value.Key
	Disabled []value.Key
	Invalid  []value.Key
}

// GenerateMermaid produces a Mermaid flowchart of the parameters of s and
// what drives them. It applies semantic styling:
// - Action: [[Subroutine]]
// - Nullable: ([Stadium])
// - Default: [Rectangle]
//
// Edges point from a dependency to its dependent: solid for depends_on,
// dotted and labeled for visible_when and enabled_when.
func GenerateMermaid(s *schema.Schema, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, p := range s.Parameters() {
		key := p.Key()
		safeID := sanitizeMermaidID(string(key))

		opener, closer := "[", "]"
		switch {
		case schema.IsAction(p):
			opener, closer = "[[", "]]"
		case acceptsNull(p):
			opener, closer = "([", "])"
		}

		label := string(key)
		if l := schema.LabelOf(p); l != "" && l != string(key) {
			label = fmt.Sprintf("%s <br/> %s", l, key)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s <br/> <i>%s</i>\"%s\n", safeID, opener, escape(label), p.ExpectedKind(), closer)

		for _, dep := range p.Dependencies() {
			fmt.Fprintf(&sb, "    %s --> %s\n", sanitizeMermaidID(string(dep)), safeID)
		}
		writeConditionEdges(&sb, "visible", p.VisibleWhen(), safeID)
		writeConditionEdges(&sb, "enabled", p.EnabledWhen(), safeID)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast on light backgrounds, whatever the theme.
		sb.WriteString("    classDef hidden fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4,color:#000;\n")
		sb.WriteString("    classDef disabled fill:#fff3e0,stroke:#ef6c00,color:#000;\n")
		sb.WriteString("    classDef invalid fill:#ffebee,stroke:#c62828,stroke-width:3px,color:#000;\n")
		writeClass(&sb, "hidden", overlay.Hidden)
		writeClass(&sb, "disabled", overlay.Disabled)
		writeClass(&sb, "invalid", overlay.Invalid)
	}

	return sb.String()
}

func writeConditionEdges(sb *strings.Builder, name string, e expr.Expr, to string) {
	if e == nil {
		return
	}
	for _, dep := range expr.Dependencies(e) {
		fmt.Fprintf(sb, "    %s -. \"%s\" .-> %s\n", sanitizeMermaidID(string(dep)), name, to)
	}
}

func writeClass(sb *strings.Builder, class string, keys []value.Key) {
	seen := make(map[string]bool)
	for _, k := range keys {
		id := sanitizeMermaidID(string(k))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		fmt.Fprintf(sb, "    class %s %s;\n", id, class)
	}
}

func acceptsNull(p schema.Parameter) bool {
	n, ok := p.(schema.NullAccepter)
	return ok && n.AcceptsNull()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
