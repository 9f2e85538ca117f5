package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Generate creates a URL-friendly slug from the given text. Diacritics common
// in product and attribute names are transliterated to ASCII.
//
// Examples:
//   - "Build Quality" → "build-quality"
//   - "Großartig!" → "grossartig"
//   - "Value   for Money" → "value-for-money"
func Generate(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))

	replacer := strings.NewReplacer(
		"ä", "a", "ö", "o", "ü", "u", "ß", "ss",
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"á", "a", "à", "a", "â", "a",
		"í", "i", "ì", "i", "î", "i",
		"ó", "o", "ò", "o", "ô", "o",
		"ú", "u", "ù", "u", "û", "u",
		"ç", "c", "ñ", "n",
	)
	s = replacer.Replace(s)

	s = nonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}

	return s
}
