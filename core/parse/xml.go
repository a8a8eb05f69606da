package parse

import (
	"strings"

	"github.com/gaurav-prasanna/tablepipe/core"
)

// feedColumns is the fixed column set for XML/RSS extraction.
var feedColumns = []string{"title", "url", "time"}

// Items returns the bodies of up to limit <item>...</item> blocks.
// The scan is index-based and non-greedy: an unclosed trailing item is
// dropped, surrounding garbage is ignored, and nothing ever fails.
func Items(xml string, limit int) []string {
	var items []string
	rest := xml
	for len(items) < limit {
		start := strings.Index(rest, "<item>")
		if start == -1 {
			break
		}
		rest = rest[start+len("<item>"):]
		end := strings.Index(rest, "</item>")
		if end == -1 {
			break
		}
		items = append(items, rest[:end])
		rest = rest[end+len("</item>"):]
	}
	return items
}

// Tag returns the body of the first case-insensitive <name>...</name>
// pair in xml, trimmed, or "" when absent.
func Tag(xml, name string) string {
	lower := strings.ToLower(xml)
	open := "<" + strings.ToLower(name) + ">"
	close := "</" + strings.ToLower(name) + ">"

	start := strings.Index(lower, open)
	if start == -1 {
		return ""
	}
	start += len(open)
	end := strings.Index(lower[start:], close)
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(xml[start : start+end])
}

// XMLRows extracts feed rows with the fixed columns title/url/time from
// each <item> block, up to limit blocks.
func XMLRows(xml string, limit int) (columns []string, rows []core.Row) {
	for _, item := range Items(xml, limit) {
		rows = append(rows, core.Row{
			"title": Tag(item, "title"),
			"url":   Tag(item, "link"),
			"time":  Tag(item, "pubDate"),
		})
	}
	return feedColumns, rows
}
