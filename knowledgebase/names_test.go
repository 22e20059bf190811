package knowledgebase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"Spa Price List.pdf":   "Spa-Price-List.pdf",
		"a/b\\c:d.txt":         "b-c-d.txt",
		"menû café.md":         "menu-cafe.md",
		"what?*|\"<>.doc":      "what------.doc",
		"  spaced  name.txt  ": "spaced--name.txt",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFileName(in), "input %q", in)
	}
}

func TestSlugifyTitle(t *testing.T) {
	cases := map[string]string{
		"Opening Hours & Holidays": "opening-hours-holidays",
		"  Crème Brûlée 101 ":      "creme-brulee-101",
		"---":                      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, slugifyTitle(in), "input %q", in)
	}
}

func TestTitleFromFileName(t *testing.T) {
	assert.Equal(t, "spa price list 2026", titleFromFileName("spa_price-list_2026.pdf"))
	assert.Equal(t, "notes", titleFromFileName("/tmp/notes.txt"))
}
