package normalizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Salary is a parsed pay range in 만원 (10,000 KRW). Nil bounds are unknown.
// Negotiable salaries never carry bounds.
type Salary struct {
	Min        *int `json:"salary_min"`
	Max        *int `json:"salary_max"`
	Negotiable bool `json:"salary_negotiable"`
}

// IsZero reports whether the text carried no salary information.
func (s Salary) IsZero() bool {
	return s.Min == nil && s.Max == nil && !s.Negotiable
}

var negotiableKeywords = []string{"협의", "면접후결정", "추후협의", "별도협의", "상담후결정"}

// magnitude is a number with an optional unit and 원 suffix, e.g. 3000만원, 1억, 4500.
const magnitude = `\d+(?:억|천만|만)?원?`

var (
	magnitudePattern = regexp.MustCompile(magnitude)
	rangePatterns    = []*regexp.Regexp{
		regexp.MustCompile(`(` + magnitude + `)\s*~\s*(` + magnitude + `)`),
		regexp.MustCompile(`(` + magnitude + `)\s*-\s*(` + magnitude + `)`),
		regexp.MustCompile(`(` + magnitude + `)\s*에서\s*(` + magnitude + `)`),
	}

	cheonmanPattern = regexp.MustCompile(`(\d+)천만`)
	eokPattern      = regexp.MustCompile(`(\d+)억`)
	manPattern      = regexp.MustCompile(`(\d+)만`)
	digitsPattern   = regexp.MustCompile(`\d+`)
)

// dashReplacer maps dash and tilde look-alikes that survive NFKC to ASCII.
var dashReplacer = strings.NewReplacer("〜", "~", "∼", "~", "‐", "-", "‑", "-", "–", "-")

// salaryRule tries to read a salary from compacted text. ok is false when the
// rule does not apply and the next one should be tried.
type salaryRule func(s string) (sal Salary, ok bool)

var salaryRules = []salaryRule{
	rangeRule,
	minimumRule,
	maximumRule,
	exactRule,
}

// ParseSalary reads a Korean salary description such as "연봉 3,000~5,000만원",
// "4000만원 이상" or "면접 후 결정". It never fails: text without numbers or
// keywords yields the zero Salary.
func ParseSalary(raw string) Salary {
	s := compactSalary(raw)
	if s == "" {
		return Salary{}
	}

	for _, kw := range negotiableKeywords {
		if strings.Contains(s, kw) {
			return Salary{Negotiable: true}
		}
	}

	for _, rule := range salaryRules {
		if sal, ok := rule(s); ok {
			return sal
		}
	}
	return Salary{}
}

// compactSalary folds width, removes whitespace and thousands separators.
func compactSalary(raw string) string {
	s := dashReplacer.Replace(fold(raw))
	return strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func rangeRule(s string) (Salary, bool) {
	for _, p := range rangePatterns {
		m := p.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		return Salary{Min: extractNumber(m[1]), Max: extractNumber(m[2])}, true
	}
	return Salary{}, false
}

func minimumRule(s string) (Salary, bool) {
	if !strings.Contains(s, "이상") {
		return Salary{}, false
	}
	m := magnitudePattern.FindString(s)
	if m == "" {
		return Salary{}, false
	}
	return Salary{Min: extractNumber(m)}, true
}

func maximumRule(s string) (Salary, bool) {
	if !strings.Contains(s, "이하") {
		return Salary{}, false
	}
	m := magnitudePattern.FindString(s)
	if m == "" {
		return Salary{}, false
	}
	return Salary{Max: extractNumber(m)}, true
}

func exactRule(s string) (Salary, bool) {
	m := magnitudePattern.FindString(s)
	if m == "" {
		return Salary{}, false
	}
	n := extractNumber(m)
	if n == nil {
		return Salary{}, false
	}
	v := *n
	return Salary{Min: n, Max: &v}, true
}

// extractNumber converts a single magnitude to 만원. Unit checks go by
// containment in fixed order (천만, 억, 만); when a unit is present but its
// pattern does not match, the next check is tried. A bare number up to 100
// is read as thousands of 만원.
func extractNumber(text string) *int {
	if strings.Contains(text, "천만") {
		if m := cheonmanPattern.FindStringSubmatch(text); m != nil {
			return scaled(m[1], 1000)
		}
	}
	if strings.Contains(text, "억") {
		if m := eokPattern.FindStringSubmatch(text); m != nil {
			return scaled(m[1], 10000)
		}
	}
	if strings.Contains(text, "만") {
		if m := manPattern.FindStringSubmatch(text); m != nil {
			return scaled(m[1], 1)
		}
	}
	if m := digitsPattern.FindString(text); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil {
			return nil
		}
		if n <= 100 {
			return scaled(m, 1000)
		}
		return &n
	}
	return nil
}

// scaled parses digits and multiplies, returning nil on overflow.
func scaled(digits string, factor int) *int {
	n, err := strconv.Atoi(digits)
	if err != nil || n > math.MaxInt/factor {
		return nil
	}
	n *= factor
	return &n
}
