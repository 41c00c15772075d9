package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var checkTags = []string{"title", "h1", "h2", "h3", "h4", "h5", "h6", "strong", "em", "p", "li"}

var checkAttrs = []struct {
	tag  string
	attr string
}{
	{"img", "alt"},
	{"img", "title"},
	{"img", "src"},
}

// directText returns the text of n that precedes its first child node. Text following
// a child element belongs to that child's tail and is not counted.
func directText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil && c.Type == html.TextNode; c = c.NextSibling {
		b.WriteString(c.Data)
	}
	return b.String()
}

// KeywordsForTag selects the elements matching selector and returns how many matched
// with their keywords joined by spaces. When attr is set the raw attribute values are
// collected instead, untouched by keyword filtering.
func KeywordsForTag(doc *goquery.Document, selector, attr string) (int, string) {
	sel := doc.Find(selector)

	var keywords []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if attr != "" {
			if val, exists := s.Attr(attr); exists {
				keywords = append(keywords, val)
			}
			return
		}
		keywords = append(keywords, ExtractKeywords(directText(s.Nodes[0]))...)
	})

	return sel.Length(), strings.Join(keywords, " ")
}

// Tags reports keywords for the headings, emphasis, paragraph and list tags, followed
// by the alt, title and src attributes of images. Selectors without content are left
// out.
func Tags(doc *goquery.Document) []TagReport {
	reports := make([]TagReport, 0, len(checkTags)+len(checkAttrs))

	add := func(tag string, count int, content string) {
		if strings.TrimSpace(content) == "" {
			return
		}
		reports = append(reports, TagReport{Tag: tag, Count: count, Content: content})
	}

	for _, tag := range checkTags {
		count, content := KeywordsForTag(doc, tag, "")
		add(tag, count, content)
	}
	for _, ca := range checkAttrs {
		count, content := KeywordsForTag(doc, ca.tag, ca.attr)
		add(ca.tag+":"+ca.attr, count, content)
	}

	return reports
}
