package fetcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var turkishUpper = cases.Upper(language.Turkish)

// normalizeName folds a station name for comparison: Turkish upper-casing,
// diacritics stripped (İ→I, Ş→S, Ğ→G, Ü→U, Ö→O, Ç→C) and whitespace collapsed.
func normalizeName(s string) string {
	upper := turkishUpper.String(s)

	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), upper)
	if err != nil {
		stripped = upper
	}

	return strings.Join(strings.Fields(stripped), " ")
}
