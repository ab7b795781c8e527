package normalizer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// KST is the zone Korean job boards publish dates in.
var KST = time.FixedZone("KST", 9*60*60)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006.01.02",
	"2006.1.2",
	"2006/01/02",
	"2006/1/2",
	"06/01/02",
	"06.01.02",
	"20060102",
}

// openEndedDeadlines mark postings that close when filled.
var openEndedDeadlines = []string{"상시채용", "상시", "채용시", "수시채용"}

// monthDayPattern matches short deadlines such as "~10/31(금)" or "~ 10.31".
var monthDayPattern = regexp.MustCompile(`(\d{1,2})[./](\d{1,2})`)

// relativeDayPattern matches "D-7" style countdowns.
var relativeDayPattern = regexp.MustCompile(`(?i)d-(\d+)`)

// NormalizeDate parses the date formats seen on Korean job boards. Dates
// without a year resolve to the next occurrence on or after now's date.
// Open-ended deadlines and unknown text report false.
func NormalizeDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(fold(s))
	if s == "" {
		return time.Time{}, false
	}
	for _, kw := range openEndedDeadlines {
		if strings.Contains(s, kw) {
			return time.Time{}, false
		}
	}

	now = now.In(KST)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, KST); err == nil {
			return t, true
		}
	}

	if m := relativeDayPattern.FindStringSubmatch(s); m != nil {
		days, _ := strconv.Atoi(m[1])
		return startOfDay(now).AddDate(0, 0, days), true
	}

	if m := monthDayPattern.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, false
		}
		t := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, KST)
		if t.Month() != time.Month(month) {
			return time.Time{}, false
		}
		if t.Before(startOfDay(now)) {
			t = t.AddDate(1, 0, 0)
		}
		return t, true
	}

	return time.Time{}, false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
