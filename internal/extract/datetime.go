package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

const dateLayout = "2006-01-02"

var (
	relativeDayRe = regexp.MustCompile(`\b(today|tomorrow|yesterday)\b`)
	weekdayRe     = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	weekRe        = regexp.MustCompile(`\b(next|this) week\b`)
	fullSlashRe   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	fullDashRe    = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`)
	shortSlashRe  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)
	clockSuffixRe = regexp.MustCompile(`^(?::\d{2})?\s*(am|pm)\b`)
	monthDayRe    = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec|january|february|march|april|june|july|august|september|october|november|december)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)

	rangeRe     = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(?:-|to)\s*(\d{1,2})(?::\d{2})?\s*(am|pm)\b`)
	hourMinRe   = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)\b`)
	hourOnlyRe  = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
	dayPartRe   = regexp.MustCompile(`\b(morning|afternoon|evening|noon)\b`)
	timeValueRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "sept": time.September, "oct": time.October,
	"nov": time.November, "dec": time.December,
}

var dayParts = map[string]string{
	"morning":   "9:00 AM",
	"afternoon": "2:00 PM",
	"evening":   "6:00 PM",
	"noon":      "12:00 PM",
}

// DateTime pulls a calendar date (YYYY-MM-DD) and a time of day (H:MM AM/PM)
// out of text, resolving relative expressions against now. Either value is
// empty when nothing in the text names it.
func DateTime(text string, now time.Time) (date, timeOfDay string) {
	lower := strings.ToLower(text)
	return extractDate(lower, now), extractTime(lower)
}

func extractDate(text string, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if m := relativeDayRe.FindStringSubmatch(text); m != nil {
		switch m[1] {
		case "today":
			return today.Format(dateLayout)
		case "tomorrow":
			return today.AddDate(0, 0, 1).Format(dateLayout)
		case "yesterday":
			return today.AddDate(0, 0, -1).Format(dateLayout)
		}
	}

	if m := weekdayRe.FindStringSubmatch(text); m != nil {
		ahead := (int(weekdays[m[1]]) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead).Format(dateLayout)
	}

	if m := weekRe.FindStringSubmatch(text); m != nil {
		if m[1] == "this" && today.Weekday() != time.Saturday && today.Weekday() != time.Sunday {
			return today.Format(dateLayout)
		}
		return nextMonday(today).Format(dateLayout)
	}

	for _, re := range []*regexp.Regexp{fullSlashRe, fullDashRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			if d, ok := civilDate(atoi(m[3]), atoi(m[1]), atoi(m[2]), now.Location()); ok {
				return d.Format(dateLayout)
			}
		}
	}

	if m := shortSlashRe.FindStringSubmatch(text); m != nil {
		if d, ok := upcoming(today, time.Month(atoi(m[1])), atoi(m[2])); ok {
			return d.Format(dateLayout)
		}
	}

	for _, idx := range monthDayRe.FindAllStringSubmatchIndex(text, -1) {
		// "I may 2 pm" is a verb and a time, not May 2.
		if clockSuffixRe.MatchString(text[idx[1]:]) {
			continue
		}
		if d, ok := monthDay(text[idx[2]:idx[3]], atoi(text[idx[4]:idx[5]]), now, today); ok {
			return d.Format(dateLayout)
		}
	}

	return ""
}

func nextMonday(today time.Time) time.Time {
	ahead := (int(time.Monday) - int(today.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return today.AddDate(0, 0, ahead)
}

// civilDate builds a date and rejects values time.Date would normalize,
// such as 2/30.
func civilDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// upcoming resolves a month/day without a year: this year unless the date is
// already behind us, then next year.
func upcoming(today time.Time, month time.Month, day int) (time.Time, bool) {
	d, ok := civilDate(today.Year(), int(month), day, today.Location())
	if !ok {
		return time.Time{}, false
	}
	if d.Before(today) {
		return civilDate(today.Year()+1, int(month), day, today.Location())
	}
	return d, true
}

func monthDay(name string, day int, now, today time.Time) (time.Time, bool) {
	month, ok := months[name]
	if !ok && len(name) >= 3 {
		month, ok = months[name[:3]]
	}
	if !ok {
		return time.Time{}, false
	}

	phrase := fmt.Sprintf("%s %d", strings.ToLower(month.String()), day)
	if t, err := naturaldate.Parse(phrase, now, naturaldate.WithDirection(naturaldate.Future)); err == nil {
		t = t.In(now.Location())
		if t.Month() == month && t.Day() == day && !t.Before(today) {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location()), true
		}
	}
	return upcoming(today, month, day)
}

func extractTime(text string) string {
	if m := rangeRe.FindStringSubmatch(text); m != nil {
		if s, ok := clock(m[1], m[2], rangeStartPeriod(atoi(m[1]), atoi(m[3]), m[4])); ok {
			return s
		}
	}
	if m := hourMinRe.FindStringSubmatch(text); m != nil {
		if s, ok := clock(m[1], m[2], m[3]); ok {
			return s
		}
	}
	if m := hourOnlyRe.FindStringSubmatch(text); m != nil {
		if s, ok := clock(m[1], "", m[2]); ok {
			return s
		}
	}
	if m := dayPartRe.FindStringSubmatch(text); m != nil {
		return dayParts[m[1]]
	}
	return ""
}

// rangeStartPeriod gives the start of "9 to 5pm" or "11-1 pm" its own
// period. A PM range that crosses noon starts in the morning.
func rangeStartPeriod(start, end int, period string) string {
	if period == "pm" && start < 12 && (start > end || end == 12) {
		return "am"
	}
	return period
}

func clock(hour, minute, period string) (string, bool) {
	h := atoi(hour)
	mins := 0
	if minute != "" {
		mins = atoi(minute)
	}
	if h < 1 || h > 12 || mins < 0 || mins > 59 {
		return "", false
	}
	return fmt.Sprintf("%d:%02d %s", h, mins, strings.ToUpper(period)), true
}

// Hour24 converts a time-of-day string such as "2:00 PM" to an hour on the
// 24h clock. It is only precise enough for ranking.
func Hour24(timeOfDay string) (int, bool) {
	m := timeValueRe.FindStringSubmatch(timeOfDay)
	if m == nil {
		return 0, false
	}
	h := atoi(m[1])
	if h < 1 || h > 12 {
		return 0, false
	}
	switch strings.ToLower(m[3]) {
	case "pm":
		if h != 12 {
			h += 12
		}
	case "am":
		if h == 12 {
			h = 0
		}
	}
	return h, true
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
