package parse

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/tablepipe/core"
)

// HTMLRows scrapes best-effort rows from an HTML page: the document
// title as one candidate row, then up to core.MaxAnchors anchors with
// tag-stripped link text (or the href when the text is empty). This is
// a heuristic extractor, not a DOM contract — malformed markup produces
// sparse results, never a failure.
func HTMLRows(html string, baseURL string) (columns []string, rows []core.Row) {
	columns = feedColumns

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return columns, nil
	}

	base, _ := url.Parse(baseURL)

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		rows = append(rows, core.Row{"title": title, "url": baseURL, "time": ""})
	}

	count := 0
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if count >= core.MaxAnchors {
			return false
		}
		href, _ := s.Attr("href")
		resolved := resolveHref(href, base)
		if resolved == "" {
			return true
		}
		title := strings.TrimSpace(s.Text())
		if title == "" {
			title = resolved
		}
		rows = append(rows, core.Row{"title": title, "url": resolved, "time": ""})
		count++
		return true
	})

	return columns, rows
}

// resolveHref resolves a potentially relative href against a base,
// skipping non-navigational schemes and bare fragments.
func resolveHref(href string, base *url.URL) string {
	if href == "" || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "#") {
		return ""
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	parsed.Fragment = ""
	return parsed.String()
}
