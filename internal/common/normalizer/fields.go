package normalizer

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"
)

// getString tries multiple keys and returns the first non-empty value
func getString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		val, ok := data[key]
		if !ok {
			continue
		}
		switch v := val.(type) {
		case string:
			if s := cleanText(v); s != "" {
				return s
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}

// getInt extracts an integer, reporting whether any key held one
func getInt(data map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		val, ok := data[key]
		if !ok {
			continue
		}
		switch v := val.(type) {
		case float64:
			return int(v), true
		case int:
			return v, true
		case int64:
			return int(v), true
		case string:
			digits := strings.Map(func(r rune) rune {
				if r >= '0' && r <= '9' {
					return r
				}
				return -1
			}, v)
			if i, err := strconv.Atoi(digits); err == nil {
				return i, true
			}
		}
	}
	return 0, false
}

// getStringList reads the first key holding a list or a delimited string
func getStringList(data map[string]any, keys ...string) []string {
	for _, key := range keys {
		if items := splitList(data[key]); len(items) > 0 {
			return items
		}
	}
	return nil
}

// splitList parses a list from an array or a delimiter separated string
func splitList(val any) []string {
	var raw []string
	switch v := val.(type) {
	case nil:
		return nil
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			switch it := item.(type) {
			case string:
				raw = append(raw, it)
			case map[string]any:
				// {"name": "Go"} style entries
				if name := getString(it, "name", "title"); name != "" {
					raw = append(raw, name)
				}
			}
		}
	case string:
		raw = strings.FieldsFunc(v, func(r rune) bool {
			switch r {
			case ',', '/', '·', '|', ';', '\n':
				return true
			}
			return false
		})
	}

	var result []string
	for _, s := range raw {
		if s = cleanText(s); s != "" {
			result = append(result, s)
		}
	}
	return result
}

// cleanText unescapes entities and collapses runs of whitespace
func cleanText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

// truncate cuts s to at most n characters
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
