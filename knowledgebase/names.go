package knowledgebase

import (
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// sanitizeFileName produces a storage-safe file name: decomposed accents are
// stripped, reserved and whitespace characters become hyphens.
func sanitizeFileName(name string) string {
	name = path.Base(strings.TrimSpace(name))
	name = stripCombiningMarks(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case strings.ContainsRune(`/\?%*:|"<>`, r):
			b.WriteRune('-')
		case unicode.IsSpace(r):
			b.WriteRune('-')
		case unicode.IsControl(r):
			// drop
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-.")
}

// slugifyTitle turns a human title into a lowercase hyphenated slug.
func slugifyTitle(title string) string {
	title = strings.ToLower(stripCombiningMarks(strings.TrimSpace(title)))

	var b strings.Builder
	b.Grow(len(title))
	lastHyphen := true
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteRune('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// titleFromFileName derives a display title from an uploaded file name by
// dropping the extension and replacing separators with spaces.
func titleFromFileName(name string) string {
	name = path.Base(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

// stripCombiningMarks removes diacritics via NFKD decomposition.
func stripCombiningMarks(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
