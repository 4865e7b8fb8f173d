package orderparse

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]bool{
	"de": true, "del": true, "la": true, "el": true, "los": true, "las": true,
	"un": true, "una": true, "por": true, "favor": true, "quiero": true,
	"con": true, "para": true, "y": true, "me": true, "das": true,
}

var lower = cases.Lower(language.Spanish)

// Fold lowercases s and strips diacritics ("Limón" -> "limon").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return lower.String(folded)
}

// Tokens folds s, drops punctuation and stop words and singularizes every word.
func Tokens(s string) []string {
	words := strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := words[:0]
	for _, w := range words {
		if stopWords[w] {
			continue
		}
		out = append(out, Singularize(w))
	}
	return out
}

// Singularize applies the common Spanish plural rules to an already folded word.
func Singularize(w string) string {
	n := len(w)
	switch {
	case n > 4 && strings.HasSuffix(w, "ces"):
		return w[:n-3] + "z"
	case n > 4 && strings.HasSuffix(w, "es") && strings.ContainsRune("lrndjz", rune(w[n-3])):
		return w[:n-2]
	case n > 3 && strings.HasSuffix(w, "s"):
		return w[:n-1]
	}
	return w
}
