package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/tendril/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
)

func TestPrintBanner(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "0.1.0\n")
	out := buf.String()
	assert.Contains(t, out, "v0.1.0")
	assert.NotContains(t, out, "\x1b[", "NO_COLOR must disable styling")
}

func TestRenderer(t *testing.T) {
	out, err := tui.NewRenderer()("# Title\n\nSome *text*.")
	assert.NoError(t, err)
	assert.Contains(t, out, "Title")
}
