package analyzer

import (
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/abadojack/whatlanggo"
	"github.com/microcosm-cc/bluemonday"
)

const languageSampleWords = 100

// textPolicy strips all markup, leaving only text.
var textPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

// ExtractArticle pulls the title, description, main image, readable text and language
// out of a page.
func ExtractArticle(doc *goquery.Document) Article {
	article := Article{
		Title:       firstNonEmpty(metaContent(doc, "property", "og:title"), doc.Find("title").First().Text()),
		Description: firstNonEmpty(metaContent(doc, "name", "description"), metaContent(doc, "property", "og:description")),
	}

	root := contentRoot(doc)
	article.Text = cleanedText(root)

	image := metaContent(doc, "property", "og:image")
	if image == "" {
		image, _ = root.Find("img[src]").First().Attr("src")
	}
	article.TopImage = resolveAgainst(doc.Url, strings.TrimSpace(image))

	words := strings.Fields(article.Text)
	if len(words) > languageSampleWords {
		words = words[:languageSampleWords]
	}
	sample := strings.TrimSpace(article.Title + " " + article.Description + " " + strings.Join(words, " "))
	if sample != "" {
		article.Language = whatlanggo.Detect(sample).Lang.Iso6393()
	}

	return article
}

func metaContent(doc *goquery.Document, key, value string) string {
	content, _ := doc.Find("meta[" + key + "='" + value + "']").First().Attr("content")
	return strings.TrimSpace(content)
}

// contentRoot picks the element most likely to hold the main content.
func contentRoot(doc *goquery.Document) *goquery.Selection {
	for _, tag := range []string{"article", "main", "body"} {
		if sel := doc.Find(tag).First(); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Selection
}

func cleanedText(root *goquery.Selection) string {
	clone := root.Clone()
	clone.Find("script, style, noscript, nav, footer, aside, iframe").Remove()

	markup, err := goquery.OuterHtml(clone)
	if err != nil {
		return strings.Join(strings.Fields(clone.Text()), " ")
	}
	text := html.UnescapeString(textPolicy.Sanitize(markup))
	return strings.Join(strings.Fields(text), " ")
}

func resolveAgainst(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
