package quiz

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/example/vocabulario/pkg/models"
)

// AccentForgivingBelow is the level under which missing diacritics are tolerated
const AccentForgivingBelow = 50

// StripAccents removes combining marks, so "café" becomes "cafe" and "año" becomes "ano"
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsCorrect judges a typed answer against the expected text.
//
// Matching is case-insensitive and ignores surrounding whitespace. Nouns also
// accept the alternative article. Items below AccentForgivingBelow are
// additionally compared with diacritics stripped from both sides.
func IsCorrect(input, expected string, item models.Item) bool {
	inp := normalize(input)
	exp := normalize(expected)
	if inp == "" || exp == "" {
		return false
	}

	candidates := []string{exp}
	if item.HasArticle() {
		alt := normalize(models.AlternativeArticle(item.Article) + " " + item.TargetText)
		candidates = append(candidates, alt)
	}

	for _, c := range candidates {
		if inp == c {
			return true
		}
	}

	if item.Level >= AccentForgivingBelow {
		return false
	}

	bare := StripAccents(inp)
	for _, c := range candidates {
		if bare == StripAccents(c) {
			return true
		}
	}
	return false
}
