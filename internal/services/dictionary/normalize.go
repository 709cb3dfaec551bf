package dictionary

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letter variants that players use interchangeably
var letterFolds = strings.NewReplacer(
	"أ", "ا", "إ", "ا", "آ", "ا",
	"ة", "ه",
	"ى", "ي", "ئ", "ي",
	"ؤ", "و",
)

var folder = cases.Fold()

// Normalize canonicalises a word for comparison: trims, case folds, drops
// combining marks and folds interchangeable letter variants.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, text)
	if err != nil {
		stripped = text
	}
	return letterFolds.Replace(folder.String(stripped))
}

// HasPrefixFold reports whether word starts with prefix after normalisation
func HasPrefixFold(word, prefix string) bool {
	w, p := Normalize(word), Normalize(prefix)
	if w == "" || p == "" {
		return false
	}
	return strings.HasPrefix(w, p)
}

// EqualFold reports whether two words are equal after normalisation
func EqualFold(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}
