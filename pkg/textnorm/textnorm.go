// Package textnorm normalises free-text profile fields.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const schoolPrefix = "Jnv"

var (
	lower = cases.Lower(language.Und)
	upper = cases.Upper(language.Und)
)

// TitleCase upper-cases the first letter or digit of each word and lower-cases the rest.
// Runs of whitespace collapse to one space.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	for i, r := range w {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			head := string(r)
			return w[:i] + upper.String(head) + lower.String(w[i+len(head):])
		}
	}
	return w
}

// FormatSchoolName title-cases a school and prefixes "Jnv " unless it already starts with it.
func FormatSchoolName(s string) string {
	titled := TitleCase(s)
	if titled == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(titled), strings.ToLower(schoolPrefix)) {
		return titled
	}
	return schoolPrefix + " " + titled
}

// Slugify folds accents, lower-cases and joins alphanumeric runs with hyphens.
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	folded = lower.String(folded)

	var b strings.Builder
	pendingDash := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
