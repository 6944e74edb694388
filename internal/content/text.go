// Package content derives plain-text facts from article HTML.
package content

import (
	"html"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText strips every tag and collapses whitespace.
func PlainText(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	// Block-level closers become spaces so adjacent paragraphs do not glue words together.
	spaced := strings.NewReplacer("</p>", "</p> ", "<br>", " ", "<br/>", " ", "<br />", " ",
		"</h1>", "</h1> ", "</h2>", "</h2> ", "</h3>", "</h3> ", "</li>", "</li> ", "</div>", "</div> ").Replace(body)
	text := html.UnescapeString(strict.Sanitize(spaced))
	return strings.Join(strings.Fields(text), " ")
}

// WordCount counts whitespace-separated words of the plain text.
func WordCount(body string) int {
	return len(strings.Fields(PlainText(body)))
}

// Headings counts h2/h3 section headings.
func Headings(body string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return 0
	}
	return doc.Find("h2, h3").Length()
}

// Excerpt returns at most limit runes of plain text, cut on a word boundary.
func Excerpt(body string, limit int) string {
	text := PlainText(body)
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndexFunc(cut, unicode.IsSpace); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRightFunc(cut, func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSpace(r) }) + "…"
}

// Slugify lower-cases and joins ASCII alphanumeric runs with dashes.
func Slugify(value string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(value) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
