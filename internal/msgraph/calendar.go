package msgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/christopherklint97/bookr/internal/booking"
	"github.com/christopherklint97/bookr/internal/calendar"
)

// Calendar books into the user's Outlook calendar. Free slots are working
// hours minus calendarView busy times.
type Calendar struct {
	client *Client
	hours  calendar.WorkingHours
}

var _ calendar.Backend = (*Calendar)(nil)

func NewCalendar(client *Client, hours calendar.WorkingHours) *Calendar {
	return &Calendar{client: client, hours: hours}
}

func (c *Calendar) Availability(ctx context.Context, start, end time.Time) ([]booking.Slot, error) {
	busy, err := c.client.FetchEvents(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching busy times: %w", err)
	}
	return calendar.FreeSlots(c.hours, start, end, busy), nil
}

func (c *Calendar) CreateEvent(ctx context.Context, slot booking.Slot, title, description, attendeeEmail string) (bool, error) {
	id, err := c.client.CreateEvent(ctx, NewEvent{
		Subject:       title,
		Description:   description,
		Start:         slot.Start,
		End:           slot.End,
		AttendeeEmail: attendeeEmail,
	})
	if err != nil {
		return false, fmt.Errorf("creating graph event: %w", err)
	}
	return id != "", nil
}

func (c *Calendar) IsReal() bool { return true }
