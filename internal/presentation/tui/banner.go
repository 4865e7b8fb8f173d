package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the startup banner followed by the version.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{"   ___ ___  _ __ ___   __ _ _ __   __| | __ _ ", "#34d399"},
		{"  / __/ _ \\| '_ ` _ \\ / _` | '_ \\ / _` |/ _` |", "#10b981"},
		{" | (_| (_) | | | | | | (_| | | | | (_| | (_| |", "#059669"},
		{"  \\___\\___/|_| |_| |_|\\__,_|_| |_|\\__,_|\\__,_|", "#047857"},
	}
	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, termenv.String("  "+version).Faint())
	}
	fmt.Fprintln(w)
}
