package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText renders message content, which may be HTML from the rich
// text editor, as plain text with collapsed whitespace. Block elements
// become line breaks.
func PlainText(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return collapse(content)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return collapse(content)
	}

	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("script, style").Remove()

	return collapse(doc.Text())
}

// collapse trims every line, squeezes inner runs of spaces, and drops
// empty lines.
func collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
