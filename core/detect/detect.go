// Package detect routes a payload to a parsing strategy.
// Selection uses, in priority order: content-type substring match, URL
// suffix match, and finally the HTML/plain-text fallback. Detection is
// pure dispatch and never fails by itself.
package detect

import (
	"net/url"
	"strings"
)

// Format is one of the parsing strategies the pipeline knows.
type Format int

const (
	FormatHTML Format = iota // fallback scraper
	FormatCSV
	FormatNDJSON
	FormatJSON
	FormatXML
)

// String returns the format name for logging.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatNDJSON:
		return "ndjson"
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	default:
		return "html"
	}
}

// Detect picks the parsing strategy for a payload. contentType and
// rawURL may each be empty; anything unrecognized falls back to HTML.
func Detect(contentType, rawURL string) Format {
	if f, ok := fromContentType(contentType); ok {
		return f
	}
	if f, ok := fromSuffix(rawURL); ok {
		return f
	}
	return FormatHTML
}

// fromContentType matches case-insensitive substrings of the header.
// ndjson must be tested before json: "ndjson" contains "json".
func fromContentType(ct string) (Format, bool) {
	ct = strings.ToLower(ct)
	switch {
	case ct == "":
		return 0, false
	case strings.Contains(ct, "csv"):
		return FormatCSV, true
	case strings.Contains(ct, "ndjson"), strings.Contains(ct, "jsonl"):
		return FormatNDJSON, true
	case strings.Contains(ct, "xml"), strings.Contains(ct, "rss"), strings.Contains(ct, "atom"):
		return FormatXML, true
	case strings.Contains(ct, "json"):
		return FormatJSON, true
	}
	return 0, false
}

// suffixFormats maps URL path extensions to formats.
var suffixFormats = map[string]Format{
	".csv":    FormatCSV,
	".ndjson": FormatNDJSON,
	".jsonl":  FormatNDJSON,
	".xml":    FormatXML,
	".rss":    FormatXML,
	".atom":   FormatXML,
	".json":   FormatJSON,
}

func fromSuffix(rawURL string) (Format, bool) {
	if rawURL == "" {
		return 0, false
	}
	path := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		path = parsed.Path
	}
	path = strings.ToLower(path)
	for suffix, f := range suffixFormats {
		if strings.HasSuffix(path, suffix) {
			return f, true
		}
	}
	return 0, false
}
