package trends

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText strips markup and entities from article titles and snippets,
// which Google returns as HTML fragments ("<b>Foo</b> &amp; bar").
func CleanText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
