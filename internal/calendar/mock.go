package calendar

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/christopherklint97/bookr/internal/booking"
)

// Mock is a deterministic stand-in calendar used when no real calendar is
// configured. Busy periods follow a fixed pattern so demos are repeatable.
type Mock struct {
	hours  WorkingHours
	logger *slog.Logger

	mu     sync.Mutex
	booked []Event
}

func NewMock(hours WorkingHours, logger *slog.Logger) *Mock {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Mock{hours: hours, logger: logger}
}

func (m *Mock) Availability(ctx context.Context, start, end time.Time) ([]booking.Slot, error) {
	m.mu.Lock()
	booked := append([]Event(nil), m.booked...)
	m.mu.Unlock()

	var slots []booking.Slot
	for _, s := range FreeSlots(m.hours, start, end, booked) {
		if mockBusy(s.Start.In(m.hours.Location)) {
			continue
		}
		slots = append(slots, s)
	}

	m.logger.Debug("mock availability generated", "start", start, "end", end, "slots", len(slots))
	return slots, nil
}

// mockBusy marks lunch, some 10:00 and 15:00 slots, Monday mornings and
// Friday afternoons as taken.
func mockBusy(t time.Time) bool {
	hour := t.Hour()
	switch {
	case hour == 12 || hour == 13:
		return true
	case hour == 10 && t.Day()%3 == 0:
		return true
	case hour == 15 && t.Day()%2 == 0:
		return true
	case hour == 9 && t.Weekday() == time.Monday:
		return true
	case hour == 16 && t.Weekday() == time.Friday:
		return true
	}
	return false
}

func (m *Mock) CreateEvent(ctx context.Context, slot booking.Slot, title, description, attendeeEmail string) (bool, error) {
	m.mu.Lock()
	m.booked = append(m.booked, Event{Summary: title, StartTime: slot.Start, EndTime: slot.End})
	m.mu.Unlock()

	m.logger.Info("mock booking created",
		"title", title,
		"start", slot.Start,
		"end", slot.End,
		"description", description,
		"attendee", attendeeEmail,
	)
	return true, nil
}

func (m *Mock) IsReal() bool { return false }
