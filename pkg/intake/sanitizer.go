// Package intake cleans inbound user text before it reaches the interpreter.
package intake

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxTextBody is the longest text body, in characters, the WhatsApp Cloud API
// delivers for a single message.
const MaxTextBody = 4096

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// Sanitizer validates and normalizes customer text.
type Sanitizer struct {
	// MaxChars bounds the text length in characters. Zero means MaxTextBody.
	MaxChars int
}

// Default sanitizes chat messages with the gateway's body limit.
var Default = Sanitizer{MaxChars: MaxTextBody}

// Sanitize is Default.Sanitize.
func Sanitize(input string) (string, error) {
	return Default.Sanitize(input)
}

// Sanitize rejects invalid UTF-8 and oversized text, composes accents (NFC) so
// "é" typed as e + combining accent matches catalog names, drops control
// characters other than newline and tab, normalizes line endings and trims
// surrounding whitespace.
func (s Sanitizer) Sanitize(input string) (string, error) {
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	limit := s.MaxChars
	if limit <= 0 {
		limit = MaxTextBody
	}
	if n := utf8.RuneCountInString(input); n > limit {
		// a truncated order would be parsed as a different order
		return "", fmt.Errorf("%w: %d characters, limit %d", ErrInputTooLarge, n, limit)
	}

	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = norm.NFC.String(input)

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case r == '\r':
			b.WriteRune('\n')
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsControl(r), r == '\u200b', r == '\ufeff':
			// zero-width space and BOM sneak in from copy-pasted lists
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
