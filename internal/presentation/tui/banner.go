package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"  _                  _      _ _ ",
	" | |_ ___ _ __   __| |_ __(_) |",
	" | __/ _ \\ '_ \\ / _` | '__| | |",
	" | ||  __/ | | | (_| | |  | | |",
	"  \\__\\___|_| |_|\\__,_|_|  |_|_|",
}

// Green to teal, one shade per line.
var bannerColors = []string{"#4ade80", "#34d399", "#2dd4bf", "#22d3ee", "#38bdf8"}

// PrintBanner writes the tendril banner and version to w, colored according
// to the terminal's profile.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, p.String(line).Foreground(p.Color(bannerColors[i])))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, p.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
