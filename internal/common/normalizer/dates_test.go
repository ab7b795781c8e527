package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	now := time.Date(2026, 10, 17, 15, 0, 0, 0, KST)
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, KST)
	}

	tests := []struct {
		name   string
		in     string
		want   time.Time
		wantOK bool
	}{
		{"iso date", "2026-10-01", day(2026, 10, 1), true},
		{"dotted date", "2026.10.01", day(2026, 10, 1), true},
		{"dotted short", "2026.9.5", day(2026, 9, 5), true},
		{"slashed", "2026/11/30", day(2026, 11, 30), true},
		{"two digit year", "26/10/15", day(2026, 10, 15), true},
		{"rfc3339", "2026-10-01T09:30:00+09:00", time.Date(2026, 10, 1, 9, 30, 0, 0, KST), true},
		{"month day deadline", "~10/31(금)", day(2026, 10, 31), true},
		{"month day deadline today", "~ 10.17(토)", day(2026, 10, 17), true},
		{"month day rolls to next year", "~01/15(목)", day(2027, 1, 15), true},
		{"countdown", "D-7", day(2026, 10, 24), true},
		{"open ended", "상시채용", time.Time{}, false},
		{"until filled", "채용시 마감", time.Time{}, false},
		{"invalid month", "~13/01", time.Time{}, false},
		{"invalid day", "~02/30", time.Time{}, false},
		{"garbage", "곧 마감", time.Time{}, false},
		{"empty", "", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDate(tt.in, now)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
			}
		})
	}
}
