package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour,
// picking a light or dark style from the terminal background.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return func(markdown string) (string, error) { return "", err }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
