package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders bot messages as markdown.
// WhatsApp emphasis (*bold*, _italic_) is close enough to markdown to render as is.
// When stdout is not a terminal the text is returned unchanged.
func NewRenderer() func(string) (string, error) {
	if !IsTerminal() {
		return func(s string) (string, error) { return s, nil }
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(72),
	)
	if err != nil {
		return func(s string) (string, error) { return s, nil }
	}

	return func(text string) (string, error) {
		out, err := r.Render(text)
		if err != nil {
			return text, err
		}
		return strings.TrimRight(out, "\n") + "\n", nil
	}
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Style helpers for chat transcripts.
func Bot(s string) string    { return colored(s, "#34d399") }
func User(s string) string   { return colored(s, "#60a5fa") }
func System(s string) string { return colored(s, "#a3a3a3") }

func colored(s, hex string) string {
	return termenv.String(s).Foreground(termenv.ColorProfile().Color(hex)).String()
}
