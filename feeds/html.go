package feeds

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern    = regexp.MustCompile(`(?s)<[^>]*>`)
	scriptPattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	blankPattern  = regexp.MustCompile(`\n{3,}`)
)

// StripHTML reduces an HTML fragment to readable plain text. Script and style
// blocks are dropped wholesale, remaining tags become whitespace and entities
// are decoded.
func StripHTML(s string) string {
	s = scriptPattern.ReplaceAllString(s, " ")
	s = strings.NewReplacer("</p>", "\n", "<br>", "\n", "<br/>", "\n", "<br />", "\n").Replace(s)
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	s = strings.Join(lines, "\n")
	s = blankPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
