package normalizer

import "strings"

// techAliases covers names whose punctuation carries meaning and would
// collide once stripped (c++ vs c, c# vs c).
var techAliases = map[string]string{
	"c++":        "cpp",
	"c#":         "csharp",
	".net":       "dotnet",
	"node.js":    "nodejs",
	"vue.js":     "vuejs",
	"next.js":    "nextjs",
	"express.js": "expressjs",
}

// NormalizeTechName returns the lookup key for a technology name: a known
// alias, or the lowercase name with everything outside [a-z0-9] removed.
// NormalizeTechName(NormalizeTechName(x)) == NormalizeTechName(x).
func NormalizeTechName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(fold(raw)))
	if name == "" {
		return ""
	}
	if alias, ok := techAliases[name]; ok {
		return alias
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, name)
}
