package pts

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Matches the sheet's literal "{Weekday}-{DD}-{MonAbbrev}-{YYYY}" form, e.g. Mon-07-Oct-2024.
var literalDateRe = regexp.MustCompile(`^\w+-(\d+)-(\w+)-(\d+)$`)

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var fallbackLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"02-Jan-2006",
}

// ParseDate returns the date at UTC midnight. ok is false when s matches
// neither the literal sheet form nor any fallback layout.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if m := literalDateRe.FindStringSubmatch(s); m != nil {
		if t, ok := literalDate(m[1], m[2], m[3]); ok {
			return t, true
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnlyUTC(t), true
		}
	}
	return time.Time{}, false
}

func literalDate(dayStr, monthStr, yearStr string) (time.Time, bool) {
	month, ok := monthAbbrev[foldCase(monthStr)]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

func dateOnlyUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
