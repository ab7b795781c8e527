package cleaner

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Cleaner sanitizes scraped HTML with a bluemonday policy
type Cleaner struct {
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewCleaner keeps basic formatting and links, dropping scripts, styles and attributes
func NewCleaner() *Cleaner {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("p", "br", "div", "span")
	policy.AllowElements("strong", "b", "em", "i", "u")
	policy.AllowElements("ul", "ol", "li", "table", "tr", "td", "th")
	policy.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")

	policy.AllowAttrs("href").OnElements("a")
	policy.AllowRelativeURLs(true)
	policy.RequireParseableURLs(true)
	policy.AllowURLSchemes("http", "https", "mailto")

	return &Cleaner{policy: policy, strict: bluemonday.StrictPolicy()}
}

// NewStrictCleaner strips all markup, so every value comes out as text
func NewStrictCleaner() *Cleaner {
	strict := bluemonday.StrictPolicy()
	return &Cleaner{policy: strict, strict: strict}
}

// blockBreak marks tags that end a line once markup is stripped.
var blockBreak = regexp.MustCompile(`(?i)<\s*(br\s*/?|/p|/div|/li|/tr|/h[1-6])\s*>`)

var (
	spaceRun = regexp.MustCompile(`[ \t\x{00a0}\x{3000}]+`)
	blankRun = regexp.MustCompile(`\n\s*\n(\s*\n)+`)
)

// Clean sanitizes HTML with the cleaner's policy
func (c *Cleaner) Clean(s string) string {
	return c.policy.Sanitize(s)
}

// CleanToText strips all markup, unescapes entities and collapses whitespace.
// Line breaks from block elements are kept.
func (c *Cleaner) CleanToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}
	s = blockBreak.ReplaceAllString(s, "\n")
	s = html.UnescapeString(c.strict.Sanitize(s))
	return collapse(s)
}

func collapse(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = spaceRun.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CleanMap sanitizes all string values in a map, descending into nested maps and slices
func (c *Cleaner) CleanMap(data map[string]any) map[string]any {
	result := make(map[string]any, len(data))
	for k, v := range data {
		result[k] = c.cleanValue(v)
	}
	return result
}

func (c *Cleaner) cleanValue(v any) any {
	switch val := v.(type) {
	case string:
		if c.policy == c.strict {
			return c.CleanToText(val)
		}
		return c.Clean(val)
	case map[string]any:
		return c.CleanMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = c.cleanValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = c.cleanValue(item).(string)
		}
		return out
	default:
		return v
	}
}
