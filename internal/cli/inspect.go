package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/tendril/internal/dto"
	"github.com/aretw0/tendril/internal/presentation/tui"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/aretw0/tendril/pkg/value"
	"golang.org/x/term"
)

// InspectMarkdown renders the live state of an instance as a Markdown
// document: one table row per parameter, then the validation errors.
func InspectMarkdown(title string, c *runtime.Context) string {
	var sb strings.Builder
	if title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", title)
	}

	views := dto.Views(c)
	infos := dto.Describe(c.Schema())
	labels := make(map[string]string, len(infos))
	for _, info := range infos {
		labels[info.Key] = info.Label
	}

	sb.WriteString("| Key | Label | Kind | Value | Visible | Enabled | Valid |\n")
	sb.WriteString("|-----|-------|------|-------|---------|---------|-------|\n")
	var problems []string
	for _, v := range views {
		val, _ := c.Get(value.Key(v.Key))
		fmt.Fprintf(&sb, "| %s | %s | %s | `%s` | %s | %s | %s |\n",
			v.Key, escapeCell(labels[v.Key]), v.Kind, escapeCell(val.String()),
			mark(v.Visible), mark(v.Enabled), mark(v.Valid))
		for _, fe := range v.Errors {
			problems = append(problems, fmt.Sprintf("- **%s** (%s): %s", fe.Key, fe.Code, fe.Message))
		}
	}

	if len(problems) > 0 {
		sb.WriteString("\n## Errors\n\n")
		sb.WriteString(strings.Join(problems, "\n"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Render prints markdown, styled when stdout is a terminal and plain
// otherwise.
func Render(markdown string, plain bool) {
	if !plain && term.IsTerminal(int(os.Stdout.Fd())) {
		if out, err := tui.NewRenderer()(markdown); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(markdown)
}

func mark(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
