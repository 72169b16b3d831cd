package booking

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MaxOffers caps how many slots are shown to the user at once.
const MaxOffers = 3

// RankSlots orders slots by how close their start hour is to preferredHour
// and returns at most limit of them. Ties keep collaborator order. Without a
// preferred hour the first limit slots are returned as given. The input is
// never modified.
func RankSlots(slots []Slot, preferredHour int, hasPreferred bool, limit int, loc *time.Location) []Slot {
	if loc == nil {
		loc = time.Local
	}
	ranked := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if s.Available {
			ranked = append(ranked, s)
		}
	}

	if hasPreferred {
		sort.SliceStable(ranked, func(i, j int) bool {
			return hourDistance(ranked[i], preferredHour, loc) < hourDistance(ranked[j], preferredHour, loc)
		})
	}

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func hourDistance(s Slot, hour int, loc *time.Location) int {
	d := s.Start.In(loc).Hour() - hour
	if d < 0 {
		return -d
	}
	return d
}

// FilterByDuration drops slots shorter than the requested meeting length.
func FilterByDuration(slots []Slot, minutes int) []Slot {
	if minutes <= 0 {
		return slots
	}
	want := time.Duration(minutes) * time.Minute
	var out []Slot
	for _, s := range slots {
		if s.Duration() >= want {
			out = append(out, s)
		}
	}
	return out
}

// FormatDate renders a stored YYYY-MM-DD date as "Tuesday, June 11". Values
// that don't parse are returned unchanged.
func FormatDate(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 02")
}

// FormatSlotTime renders a slot start as "Tuesday, June 11 at 02:00 PM".
func FormatSlotTime(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("Monday, January 02 at 03:04 PM")
}

// FormatCatalog numbers the catalog the way users select from it.
func FormatCatalog(catalog []Slot, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	lines := make([]string, len(catalog))
	for i, s := range catalog {
		lines[i] = fmt.Sprintf("%d. %s - %s",
			i+1,
			s.Start.In(loc).Format("03:04 PM"),
			s.End.In(loc).Format("03:04 PM"),
		)
	}
	return strings.Join(lines, "\n")
}

// DayBounds returns the first and last instant of a stored date in loc.
func DayBounds(date string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing date %q: %w", date, err)
	}
	end := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, loc)
	return day, end, nil
}
