package calendar

import (
	"strconv"
	"time"

	"github.com/christopherklint97/bookr/internal/booking"
)

// WorkingHours bounds the slots offered on a day.
type WorkingHours struct {
	StartMinute int // minutes after midnight
	EndMinute   int
	Days        []time.Weekday
	SlotLength  time.Duration
	Location    *time.Location
}

// DefaultWorkingHours is 09:00 to 17:00, Monday to Friday, in hour slots.
func DefaultWorkingHours(loc *time.Location) WorkingHours {
	if loc == nil {
		loc = time.Local
	}
	return WorkingHours{
		StartMinute: 9 * 60,
		EndMinute:   17 * 60,
		Days:        []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		SlotLength:  time.Hour,
		Location:    loc,
	}
}

// NewWorkingHours builds working hours from config values. Days use 1=Monday
// through 7=Sunday. Bad values fall back to the defaults.
func NewWorkingHours(start, end string, days []int, slotMinutes int, loc *time.Location) WorkingHours {
	wh := DefaultWorkingHours(loc)
	if h, m, ok := parseClock(start); ok {
		wh.StartMinute = h*60 + m
	}
	if h, m, ok := parseClock(end); ok {
		wh.EndMinute = h*60 + m
	}
	if len(days) > 0 {
		wh.Days = wh.Days[:0:0]
		for _, d := range days {
			if d >= 1 && d <= 7 {
				wh.Days = append(wh.Days, time.Weekday(d%7))
			}
		}
	}
	if slotMinutes > 0 {
		wh.SlotLength = time.Duration(slotMinutes) * time.Minute
	}
	return wh
}

func parseClock(s string) (int, int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, false
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

func (wh WorkingHours) isWorkDay(t time.Time) bool {
	for _, d := range wh.Days {
		if d == t.Weekday() {
			return true
		}
	}
	return false
}

// Candidates lists every working slot whose start falls in [start, end),
// day by day.
func (wh WorkingHours) Candidates(start, end time.Time) []booking.Slot {
	loc := wh.Location
	if loc == nil {
		loc = time.Local
	}
	length := wh.SlotLength
	if length <= 0 {
		length = time.Hour
	}

	start, end = start.In(loc), end.In(loc)
	var slots []booking.Slot
	for day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc); day.Before(end); day = day.AddDate(0, 0, 1) {
		if !wh.isWorkDay(day) {
			continue
		}
		open := day.Add(time.Duration(wh.StartMinute) * time.Minute)
		closeAt := day.Add(time.Duration(wh.EndMinute) * time.Minute)
		for s := open; !s.Add(length).After(closeAt); s = s.Add(length) {
			if s.Before(start) || !s.Before(end) {
				continue
			}
			slots = append(slots, booking.Slot{Start: s, End: s.Add(length), Available: true})
		}
	}
	return slots
}

// FreeSlots returns the working slots in [start, end) that overlap none of
// the busy events.
func FreeSlots(wh WorkingHours, start, end time.Time, busy []Event) []booking.Slot {
	var free []booking.Slot
	for _, s := range wh.Candidates(start, end) {
		taken := false
		for _, e := range busy {
			if e.overlaps(s.Start, s.End) {
				taken = true
				break
			}
		}
		if !taken {
			free = append(free, s)
		}
	}
	return free
}
